package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/osusproperties/brokerage-core/internal/application/port"
	"github.com/osusproperties/brokerage-core/internal/domain/approval"
	"github.com/osusproperties/brokerage-core/pkg/utils"
)

// Default parameter keys, as stored in ir.config_parameter
const (
	DefaultApproverIDsKey = "account_payment_approval.approval_user_ids"
	DefaultApproverIDKey  = "account_payment_approval.approval_user_id"
)

// ApproverResolver reads the approver list from configuration parameters.
// The multi-approver key wins when it yields at least one ID; otherwise the
// single fallback key is used.
type ApproverResolver struct {
	params    port.ParamReader
	multiKey  string
	singleKey string
}

// NewApproverResolver creates a resolver; empty keys fall back to the defaults
func NewApproverResolver(params port.ParamReader, multiKey, singleKey string) *ApproverResolver {
	if multiKey == "" {
		multiKey = DefaultApproverIDsKey
	}
	if singleKey == "" {
		singleKey = DefaultApproverIDKey
	}
	return &ApproverResolver{params: params, multiKey: multiKey, singleKey: singleKey}
}

// ResolveApprovers returns approver IDs in configured order, without duplicates
func (r *ApproverResolver) ResolveApprovers(ctx context.Context) ([]string, error) {
	raw, _, err := r.params.GetParam(ctx, r.multiKey)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.multiKey, err)
	}
	if ids := utils.SplitIDs(raw); len(ids) > 0 {
		return ids, nil
	}

	raw, _, err = r.params.GetParam(ctx, r.singleKey)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.singleKey, err)
	}
	if id := normalizeParamID(raw); id != "" {
		return []string{id}, nil
	}

	return nil, ErrNoApproversConfigured
}

// normalizeParamID treats Odoo's unset markers as empty
func normalizeParamID(raw string) string {
	id := strings.TrimSpace(raw)
	switch id {
	case "0", "False", "false":
		return ""
	}
	return id
}

// PolicySource yields the approval policy in force for a transition
type PolicySource interface {
	Policy(ctx context.Context) (*approval.Policy, error)
}

// PolicyProvider combines static role grants with the resolved approvers.
// When no reviewer or poster is configured, approvers also hold that role.
type PolicyProvider struct {
	resolver *ApproverResolver
	static   map[approval.Role][]string
	logger   Logger
}

// NewPolicyProvider creates a policy provider
func NewPolicyProvider(resolver *ApproverResolver, static map[approval.Role][]string, logger Logger) *PolicyProvider {
	return &PolicyProvider{resolver: resolver, static: static, logger: orNop(logger)}
}

// Policy builds a fresh policy so parameter changes apply to the next transition
func (p *PolicyProvider) Policy(ctx context.Context) (*approval.Policy, error) {
	policy := approval.NewPolicy(p.static)

	approvers, err := p.resolver.ResolveApprovers(ctx)
	switch {
	case err == nil:
		policy.Grant(approval.RoleApprover, approvers...)
	case errors.Is(err, ErrNoApproversConfigured):
		p.logger.Info("No approvers configured in parameters", "static_approvers", len(p.static[approval.RoleApprover]))
	default:
		return nil, err
	}

	all := policy.Principals(approval.RoleApprover)
	if !policy.HasHolders(approval.RoleReviewer) {
		policy.Grant(approval.RoleReviewer, all...)
	}
	if !policy.HasHolders(approval.RolePoster) {
		policy.Grant(approval.RolePoster, all...)
	}

	return policy, nil
}

var _ PolicySource = (*PolicyProvider)(nil)
