package kernel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/gpfit/internal/errdefs"
)

// Classify infers the kernel of an instrument from the GP_<h>_<instrument>
// names present among declared. Only known hyperparameter names count, so
// "GP_sigma_A_TESS" is never mistaken for a hyperparameter of "TESS".
//
// The present set must equal one kernel's set exactly. Anything else is a
// ConfigurationError: a set contained in several kernels is ambiguous, a set
// contained in exactly one kernel is incomplete, and a set mixing names of
// different kernels is ambiguous. Ambiguity is never resolved silently.
func Classify(instrument string, declared []string) (Kind, error) {
	present := presentHyper(instrument, declared)
	if len(present) == 0 {
		return None, nil
	}

	for _, k := range Kinds {
		if sameSet(hyperNames[k], present) {
			return k, nil
		}
	}

	var supersets []Kind
	for _, k := range Kinds {
		if containsAll(hyperNames[k], present) {
			supersets = append(supersets, k)
		}
	}

	switch len(supersets) {
	case 1:
		k := supersets[0]
		var missing []string
		for _, h := range hyperNames[k] {
			if _, ok := present[h]; !ok {
				missing = append(missing, ParamName(h, instrument))
			}
		}
		return None, &errdefs.ConfigurationError{
			Instrument: instrument,
			Kernel:     k.String(),
			Msg:        "incomplete GP specification, missing " + strings.Join(missing, ", "),
		}
	case 0:
		var touched []string
		for _, k := range Kinds {
			for _, h := range hyperNames[k] {
				if _, ok := present[h]; ok && h != "sigma" {
					touched = append(touched, k.String())
					break
				}
			}
		}
		return None, &errdefs.ConfigurationError{
			Instrument: instrument,
			Msg:        fmt.Sprintf("ambiguous GP specification %v mixes hyperparameters of kernels %s", sortedKeys(present), strings.Join(touched, ", ")),
		}
	default:
		names := make([]string, len(supersets))
		for i, k := range supersets {
			names[i] = k.String()
		}
		return None, &errdefs.ConfigurationError{
			Instrument: instrument,
			Msg:        fmt.Sprintf("ambiguous GP specification %v matches kernels %s", sortedKeys(present), strings.Join(names, ", ")),
		}
	}
}

func presentHyper(instrument string, declared []string) map[string]struct{} {
	known := make(map[string]struct{})
	for _, names := range hyperNames {
		for _, n := range names {
			known[n] = struct{}{}
		}
	}
	suffix := "_" + instrument
	present := make(map[string]struct{})
	for _, name := range declared {
		if !strings.HasPrefix(name, "GP_") || !strings.HasSuffix(name, suffix) {
			continue
		}
		h := strings.TrimSuffix(strings.TrimPrefix(name, "GP_"), suffix)
		if _, ok := known[h]; ok {
			present[h] = struct{}{}
		}
	}
	return present
}

func sameSet(names []string, set map[string]struct{}) bool {
	return len(names) == len(set) && containsAll(names, set)
}

// containsAll reports whether every member of set is in names.
func containsAll(names []string, set map[string]struct{}) bool {
	for h := range set {
		found := false
		for _, n := range names {
			if n == h {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
