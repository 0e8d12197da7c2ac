package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/storage/inmem"
	"go.uber.org/zap"
)

const allowQuery = "data.prospect.authz.allow"

// Default Rego policy: a user type is allowed a permission listed for it in data.permissions.
const defaultRegoPolicy = `package prospect.authz

default allow := false

allow if {
	some p in data.permissions[input.user_type]
	p == input.permission
}
`

// OPAEvaluator authorizes requests by evaluating Rego over the static permission table.
// The query is prepared once on first use.
type OPAEvaluator struct {
	table  map[string][]string
	policy string
	log    *zap.Logger

	once     sync.Once
	prepared rego.PreparedEvalQuery
	prepErr  error
}

// NewOPAEvaluator returns an evaluator over table (user type -> permissions). An empty policy uses
// the default; a nil log discards evaluation failures.
func NewOPAEvaluator(table map[string][]string, policy string, log *zap.Logger) *OPAEvaluator {
	if policy == "" {
		policy = defaultRegoPolicy
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OPAEvaluator{table: table, policy: policy, log: log}
}

func (e *OPAEvaluator) prepare(ctx context.Context) (rego.PreparedEvalQuery, error) {
	e.once.Do(func() {
		perms := make(map[string]interface{}, len(e.table))
		for userType, list := range e.table {
			vals := make([]interface{}, len(list))
			for i, p := range list {
				vals[i] = p
			}
			perms[userType] = vals
		}
		store := inmem.NewFromObject(map[string]interface{}{"permissions": perms})
		e.prepared, e.prepErr = rego.New(
			rego.Query(allowQuery),
			rego.Module("authz.rego", e.policy),
			rego.Store(store),
		).PrepareForEval(ctx)
		if e.prepErr != nil {
			e.prepErr = fmt.Errorf("prepare policy: %w", e.prepErr)
		}
	})
	return e.prepared, e.prepErr
}

// Allow implements Evaluator.
func (e *OPAEvaluator) Allow(ctx context.Context, userType, permission string) (bool, error) {
	q, err := e.prepare(ctx)
	if err != nil {
		return false, err
	}
	rs, err := q.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"user_type":  userType,
		"permission": permission,
	}))
	if err != nil {
		e.log.Warn("policy evaluation failed",
			zap.String("user_type", userType),
			zap.String("permission", permission),
			zap.Error(err),
		)
		return false, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	allowed, _ := rs[0].Expressions[0].Value.(bool)
	return allowed, nil
}

// HealthCheck verifies that the in-process OPA engine can compile and evaluate the default policy.
// It does not touch the configured table. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	compiler, err := ast.CompileModules(map[string]string{"authz.rego": defaultRegoPolicy})
	if err != nil {
		return fmt.Errorf("compile default policy: %w", err)
	}
	q := rego.New(
		rego.Query(allowQuery),
		rego.Compiler(compiler),
		rego.Store(inmem.NewFromObject(map[string]interface{}{
			"permissions": map[string]interface{}{"probe": []interface{}{"probe:read"}},
		})),
		rego.Input(map[string]interface{}{"user_type": "probe", "permission": "probe:read"}),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return fmt.Errorf("eval default policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	if v, _ := rs[0].Expressions[0].Value.(bool); !v {
		return fmt.Errorf("policy probe denied")
	}
	return nil
}
