package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/gpfit/internal/ctxlog"
	"github.com/specialistvlad/gpfit/internal/errdefs"
)

// ValidateUsage performs a parity check between the declared parameters and
// the names the model components actually read. A free parameter nothing
// reads would add a dimension the likelihood is flat in, so it is rejected;
// an unused fixed parameter only produces a warning.
func (r *Registry) ValidateUsage(ctx context.Context, used map[string]struct{}) error {
	logger := ctxlog.FromContext(ctx)
	var unused []string

	for _, p := range r.params {
		if _, ok := used[p.Name]; ok {
			continue
		}
		if p.Dist.IsFixed() {
			logger.Warn("Fixed parameter is declared but not used by any model component.", "parameter", p.Name)
			continue
		}
		unused = append(unused, p.Name)
	}

	if len(unused) > 0 {
		return &errdefs.ConfigurationError{
			Parameter: unused[0],
			Msg:       fmt.Sprintf("free parameters not used by any model component: %s", strings.Join(unused, ", ")),
		}
	}
	return nil
}
