package acceptance

import (
	"encoding/json"
	"net/http"

	"github.com/pagebrief/entitlement-service/internal/domain"
	"github.com/pagebrief/entitlement-service/internal/dto"
)

func (s *Suite) recordUsage(token, dom string) (*http.Response, domain.UsageSnapshot, dto.ErrorResponse) {
	body, _ := json.Marshal(dto.RecordUsageRequest{Domain: dom})
	resp := s.authedRequest("POST", "/api/v1/usage", token, body)
	defer resp.Body.Close()

	var snapshot domain.UsageSnapshot
	var errResp dto.ErrorResponse
	if resp.StatusCode == http.StatusOK {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&snapshot))
	} else {
		json.NewDecoder(resp.Body).Decode(&errResp)
	}
	return resp, snapshot, errResp
}

func (s *Suite) checkEntitlement(token, dom string) domain.UsageSnapshot {
	path := "/api/v1/usage"
	if dom != "" {
		path += "?domain=" + dom
	}
	resp := s.authedRequest("GET", path, token, nil)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var snapshot domain.UsageSnapshot
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&snapshot))
	return snapshot
}

func (s *Suite) TestUsage_FreshAccountHasFullAllowance() {
	auth := s.register("fresh@example.com", "Password123")

	snapshot := s.checkEntitlement(auth.AccessToken, "")
	s.True(snapshot.Allowed)
	s.Equal(0, snapshot.Used)
	s.Equal(3, snapshot.Limit)
	s.Equal(3, snapshot.Remaining)
	s.False(snapshot.IsPremium)
}

func (s *Suite) TestUsage_RecordChargesDistinctDomains() {
	auth := s.register("meter@example.com", "Password123")

	resp, snapshot, _ := s.recordUsage(auth.AccessToken, "alpha.example.com")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(1, snapshot.Used)
	s.Equal(2, snapshot.Remaining)

	resp, snapshot, _ = s.recordUsage(auth.AccessToken, "beta.example.com")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(2, snapshot.Used)

	resp, snapshot, _ = s.recordUsage(auth.AccessToken, "gamma.example.com")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(3, snapshot.Used)
	s.Equal(0, snapshot.Remaining)
}

func (s *Suite) TestUsage_RevisitDoesNotConsumeAllowance() {
	auth := s.register("revisit@example.com", "Password123")

	s.recordUsage(auth.AccessToken, "alpha.example.com")

	// Same domain again; the ledger keys on the domain, not the visit
	resp, snapshot, _ := s.recordUsage(auth.AccessToken, "alpha.example.com")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(1, snapshot.Used)
	s.Equal(2, snapshot.Remaining)
}

func (s *Suite) TestUsage_DomainNormalization() {
	auth := s.register("normalize@example.com", "Password123")

	s.recordUsage(auth.AccessToken, "https://www.Example.COM/some/page")

	resp, snapshot, _ := s.recordUsage(auth.AccessToken, "example.com")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(1, snapshot.Used, "URL form and bare domain should collapse to one record")
}

func (s *Suite) TestUsage_CapBlocksNewDomains() {
	auth := s.register("capped@example.com", "Password123")

	s.recordUsage(auth.AccessToken, "one.example.com")
	s.recordUsage(auth.AccessToken, "two.example.com")
	s.recordUsage(auth.AccessToken, "three.example.com")

	resp, _, errResp := s.recordUsage(auth.AccessToken, "four.example.com")
	s.Equal(http.StatusForbidden, resp.StatusCode)
	s.Equal("Forbidden", errResp.Error)
	s.NotNil(errResp.Details, "Cap rejection should include the usage snapshot")

	// Already-charged domains stay accessible at the cap
	snapshot := s.checkEntitlement(auth.AccessToken, "one.example.com")
	s.True(snapshot.Allowed)

	snapshot = s.checkEntitlement(auth.AccessToken, "five.example.com")
	s.False(snapshot.Allowed)
}

func (s *Suite) TestUsage_MissingDomainRejected() {
	auth := s.register("nodomain@example.com", "Password123")

	body, _ := json.Marshal(map[string]string{"url": "https://example.com"})
	resp := s.authedRequest("POST", "/api/v1/usage", auth.AccessToken, body)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestUsage_RequiresAuthentication() {
	req, _ := http.NewRequest("GET", s.BaseURL+"/api/v1/usage", nil)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}
