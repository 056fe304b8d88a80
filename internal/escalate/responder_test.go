package escalate

import (
	"context"
	"testing"
	"time"

	"github.com/maxbolgarin/autover/internal/model"
	"github.com/maxbolgarin/errm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVCS struct {
	branches  []string
	branchErr error
	slow      time.Duration
}

func (f *fakeVCS) ListRecentCommits(context.Context, int) ([]model.CommitRecord, error) {
	return nil, nil
}
func (f *fakeVCS) GetCommit(context.Context, string) (model.CommitRecord, error) {
	return model.CommitRecord{}, nil
}
func (f *fakeVCS) GetFileChanges(context.Context, string) ([]model.FileChange, error) {
	return nil, nil
}
func (f *fakeVCS) TagsPointingAt(context.Context, string) ([]string, error) { return nil, nil }
func (f *fakeVCS) CreateTag(context.Context, string, string, string) error  { return nil }
func (f *fakeVCS) CreateBranch(_ context.Context, name, _ string) error {
	if f.slow > 0 {
		time.Sleep(f.slow)
	}
	if f.branchErr != nil {
		return f.branchErr
	}
	f.branches = append(f.branches, name)
	return nil
}

type fakeNotifier struct {
	notified []model.TestEscalation
	err      error
}

func (f *fakeNotifier) NotifyEscalation(_ context.Context, escalation model.TestEscalation) error {
	if f.err != nil {
		return f.err
	}
	f.notified = append(f.notified, escalation)
	return nil
}

func newTestResponder(t *testing.T, vcs *fakeVCS, notifier *fakeNotifier) *Responder {
	t.Helper()
	r, err := NewResponder(Config{}, vcs, notifier)
	require.NoError(t, err)
	r.now = func() time.Time { return time.Unix(1700000000, 0) }
	return r
}

func TestRespondLowRisk(t *testing.T) {
	vcs := &fakeVCS{}
	notifier := &fakeNotifier{}
	r := newTestResponder(t, vcs, notifier)

	escalation, err := r.Respond(context.Background(), model.FileImpact{
		Path: "docs/README.md", Score: 2, Risk: model.RiskLow,
	})
	require.NoError(t, err)

	assert.Equal(t, model.EscalationLogged, escalation.Status)
	assert.Empty(t, escalation.BranchRef)
	assert.Empty(t, vcs.branches)
	assert.Empty(t, notifier.notified)
}

func TestRespondMediumRisk(t *testing.T) {
	vcs := &fakeVCS{}
	notifier := &fakeNotifier{}
	r := newTestResponder(t, vcs, notifier)

	escalation, err := r.Respond(context.Background(), model.FileImpact{
		Path: "skills/search.md", Score: 5, Risk: model.RiskMedium,
	})
	require.NoError(t, err)

	assert.Equal(t, model.EscalationCreated, escalation.Status)
	assert.Equal(t, "test/skills-search-md-1700000000", escalation.BranchRef)
	assert.Equal(t, []string{escalation.BranchRef}, vcs.branches)
	assert.Empty(t, notifier.notified)
}

func TestRespondHighRiskNotifies(t *testing.T) {
	vcs := &fakeVCS{}
	notifier := &fakeNotifier{}
	r := newTestResponder(t, vcs, notifier)

	escalation, err := r.Respond(context.Background(), model.FileImpact{
		Path: "rules/naming.md", Score: 8, Risk: model.RiskHigh,
	})
	require.NoError(t, err)

	assert.Equal(t, model.EscalationFlagged, escalation.Status)
	assert.Len(t, vcs.branches, 1)
	require.Len(t, notifier.notified, 1)
	assert.Equal(t, escalation.BranchRef, notifier.notified[0].BranchRef)
}

func TestRespondNotifyFailureKeepsEscalation(t *testing.T) {
	vcs := &fakeVCS{}
	notifier := &fakeNotifier{err: errm.New("webhook down")}
	r := newTestResponder(t, vcs, notifier)

	escalation, err := r.Respond(context.Background(), model.FileImpact{
		Path: "rules/naming.md", Risk: model.RiskHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, model.EscalationFlagged, escalation.Status)
}

func TestRespondBranchFailureDefersToManualReview(t *testing.T) {
	vcs := &fakeVCS{branchErr: errm.New("remote rejected")}
	notifier := &fakeNotifier{}
	r := newTestResponder(t, vcs, notifier)

	escalation, err := r.Respond(context.Background(), model.FileImpact{
		Path: "rules/naming.md", Risk: model.RiskHigh,
	})
	require.Error(t, err)
	assert.Equal(t, model.EscalationManualReview, escalation.Status)
	assert.Empty(t, notifier.notified)
}

func TestRespondUnknownRiskTreatedAsHigh(t *testing.T) {
	vcs := &fakeVCS{}
	notifier := &fakeNotifier{}
	r := newTestResponder(t, vcs, notifier)

	escalation, err := r.Respond(context.Background(), model.FileImpact{
		Path: "weird.bin", Risk: model.RiskLevel("unknowable"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.RiskHigh, escalation.Risk)
	assert.Equal(t, model.EscalationFlagged, escalation.Status)
}

func TestRespondBranchTimeoutDefersToManualReview(t *testing.T) {
	vcs := &fakeVCS{slow: 300 * time.Millisecond}
	notifier := &fakeNotifier{}

	r, err := NewResponder(Config{CallTimeout: 50 * time.Millisecond}, vcs, notifier)
	require.NoError(t, err)

	start := time.Now()
	escalation, err := r.Respond(context.Background(), model.FileImpact{
		Path: "rules/naming.md", Risk: model.RiskHigh,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrCallTimeout)
	assert.Equal(t, model.EscalationManualReview, escalation.Status)
	assert.Less(t, time.Since(start), 200*time.Millisecond,
		"a hung backend must not block past the call timeout")
}

func TestBranchNameSanitizesPath(t *testing.T) {
	r := newTestResponder(t, &fakeVCS{}, &fakeNotifier{})

	name := r.branchName("src/core engine/v2.ts")
	assert.Equal(t, "test/src-core-engine-v2-ts-1700000000", name)
}
