package temporal

import (
	"context"
	"errors"
	"testing"
	"time"

	"signup/internal/enrichment"
	"signup/internal/registry"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"
)

type stubEnricher struct {
	out  enrichment.Outcome
	reqs []enrichment.Request
}

func (s *stubEnricher) Run(ctx context.Context, req enrichment.Request) enrichment.Outcome {
	s.reqs = append(s.reqs, req)
	out := s.out
	out.ParticipantID = req.ParticipantID
	return out
}

type EnrichWorkflowSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite

	env *testsuite.TestWorkflowEnvironment
}

func (s *EnrichWorkflowSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
}

func (s *EnrichWorkflowSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func (s *EnrichWorkflowSuite) TestReturnsActivityOutcome() {
	enricher := &stubEnricher{out: enrichment.Outcome{Profile: &registry.Profile{UserID: 42, DisplayName: "Pro"}}}
	s.env.RegisterActivity(&Activities{Enricher: enricher})

	req := enrichment.Request{ParticipantID: "p-1", Handle: "ProGamer123", TournamentType: "pvp"}
	s.env.ExecuteWorkflow(EnrichParticipantWorkflow, req, time.Minute)

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var out enrichment.Outcome
	s.NoError(s.env.GetWorkflowResult(&out))
	s.Equal("p-1", out.ParticipantID)
	s.Require().NotNil(out.Profile)
	s.Equal(int64(42), out.Profile.UserID)
	s.Equal([]enrichment.Request{req}, enricher.reqs)
}

func (s *EnrichWorkflowSuite) TestActivityFailureIsNotRetried() {
	acts := &Activities{}
	s.env.RegisterActivity(acts)
	s.env.OnActivity(acts.EnrichParticipant, mock.Anything, mock.Anything).
		Return(enrichment.Outcome{}, errors.New("worker crashed")).Once()

	s.env.ExecuteWorkflow(EnrichParticipantWorkflow, enrichment.Request{ParticipantID: "p-2", Handle: "ProGamer123"}, time.Duration(0))

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError(), "The workflow never fails its trigger")

	var out enrichment.Outcome
	s.NoError(s.env.GetWorkflowResult(&out))
	s.Equal(enrichment.SkipActivityFailed, out.Skipped)
	s.Equal("p-2", out.ParticipantID)
}

func TestEnrichWorkflowSuite(t *testing.T) {
	suite.Run(t, new(EnrichWorkflowSuite))
}
