package container

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/osusproperties/brokerage-core/internal/application/service"
	"github.com/osusproperties/brokerage-core/internal/config"
	"github.com/osusproperties/brokerage-core/internal/domain/approval"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Database.Path = ":memory:"
	cfg.Report.OutputDir = t.TempDir()
	return cfg
}

func TestNewContainer_RequiresConfigAndLogger(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(testConfig(t), nil)
	assert.Error(t, err)
}

func TestNewContainer_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Approval.ParamSource = "odoo"

	_, err := NewContainer(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestContainer_StartAndClose(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(ctx), "second start must fail")

	health := c.Health(ctx)
	assert.NoError(t, health["database"])
	assert.NoError(t, health["dispatcher"])
	_, hasWorkers := health["workers"]
	assert.False(t, hasWorkers, "no workers without Odoo or OpenAI")

	assert.Equal(t, 0, c.Workers().GetWorkerCount())

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())
	assert.Error(t, c.Start(ctx))
}

func TestContainer_ApprovalFlowUsesLocalParams(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	defer c.Close()

	require.NoError(t, c.Repositories().Param.Set(ctx, c.Config().Approval.ApproverIDsKey, "7, 8", ""))

	record, err := c.Services().Approval.CreateRecord(ctx, service.CreateRecordInput{
		Kind:      entity.RecordKindPayment,
		Reference: "PAY/0001",
		Amount:    decimal.NewFromInt(2500),
	}, "3")
	require.NoError(t, err)

	engine := c.WorkflowEngine()
	_, err = engine.Submit(ctx, record.ID, "3")
	require.NoError(t, err)

	// the author is not an approver
	_, err = engine.StartReview(ctx, record.ID, "3")
	require.Error(t, err)
	kind, ok := approval.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, approval.KindNotAuthorized, kind)

	updated, err := engine.StartReview(ctx, record.ID, "7")
	require.NoError(t, err)
	assert.Equal(t, approval.StateUnderReview, updated.State)

	policy, err := c.Policies().Policy(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"7", "8"}, policy.Principals(approval.RoleApprover))
}

func TestCommissionPolicy_FromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Commission.ValidationMode = "warn"

	p := CommissionPolicy(&cfg.Commission, true)
	assert.Equal(t, "AED", p.Currency)
	assert.True(t, p.ExportEnabled)
	assert.Equal(t, "warn", string(p.Validation.Mode))
}
