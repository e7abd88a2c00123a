package skill

import "runtime"

// SkillConfig is the per-skill entry of an environment probe's
// configuration map.
type SkillConfig struct {
	Enabled *bool
}

// EnvironmentProbe is a pure view onto the current environment: no
// method may mutate state, and identical inputs must yield identical
// outputs across calls (the filter's determinism depends on this).
type EnvironmentProbe struct {
	PlatformID string
	LookupBin  func(name string) bool
	LookupEnv  func(name string) string
	Config     map[string]SkillConfig
	// BundledAllowlist, when non-nil, restricts which bundled-source
	// skills are eligible. A nil allowlist admits all bundled skills.
	BundledAllowlist map[string]bool
}

// NewOSEnvironmentProbe builds a probe tagged with runtime.GOOS as the
// platform id, using the caller-supplied PATH and env lookup functions
// and an empty per-skill config.
func NewOSEnvironmentProbe(lookupBin func(string) bool, lookupEnv func(string) string) EnvironmentProbe {
	return EnvironmentProbe{
		PlatformID: runtime.GOOS,
		LookupBin:  lookupBin,
		LookupEnv:  lookupEnv,
		Config:     map[string]SkillConfig{},
	}
}

// Verdict is the result of an eligibility check: eligible, or not with
// a human-readable reason.
type Verdict struct {
	Eligible bool
	Reason   string
}

func eligible() Verdict { return Verdict{Eligible: true} }
func reject(reason string) Verdict { return Verdict{Eligible: false, Reason: reason} }

// CheckEligibility evaluates the fixed seven-step gate in order,
// returning on the first failure. The probe must be pure; this
// function performs no side effects itself.
func CheckEligibility(sk *Skill, probe EnvironmentProbe) Verdict {
	if sk.Metadata.Always {
		return eligible()
	}

	if cfg, ok := probe.Config[sk.Name]; ok && cfg.Enabled != nil && !*cfg.Enabled {
		return reject("disabled by config")
	}

	if sk.Source == SourceBundled && probe.BundledAllowlist != nil && !probe.BundledAllowlist[sk.Name] {
		return reject("bundled skill not in allowlist")
	}

	req := sk.Metadata.Requires

	if len(req.OS) > 0 {
		found := false
		for _, os := range req.OS {
			if os == probe.PlatformID {
				found = true
				break
			}
		}
		if !found {
			return reject("unsupported platform: " + probe.PlatformID)
		}
	}

	for _, bin := range req.Bins {
		if probe.LookupBin == nil || !probe.LookupBin(bin) {
			return reject("missing required binary: " + bin)
		}
	}

	if len(req.AnyBins) > 0 {
		found := false
		for _, bin := range req.AnyBins {
			if probe.LookupBin != nil && probe.LookupBin(bin) {
				found = true
				break
			}
		}
		if !found {
			candidates := req.AnyBins[0]
			for _, bin := range req.AnyBins[1:] {
				candidates += ", " + bin
			}
			return reject("none of the required binaries found: " + candidates)
		}
	}

	for _, name := range req.Env {
		if probe.LookupEnv == nil || probe.LookupEnv(name) == "" {
			return reject("missing required environment variable: " + name)
		}
	}

	return eligible()
}

// FilterEligible applies CheckEligibility to every candidate skill,
// returning the eligible subset (stable input order preserved) and a
// map from rejected skill name to rejection reason for introspection.
func FilterEligible(candidates []*Skill, probe EnvironmentProbe) (eligibleSkills []*Skill, rejections map[string]string) {
	rejections = map[string]string{}
	for _, sk := range candidates {
		v := CheckEligibility(sk, probe)
		if v.Eligible {
			eligibleSkills = append(eligibleSkills, sk)
		} else {
			rejections[sk.Name] = v.Reason
		}
	}
	return eligibleSkills, rejections
}
