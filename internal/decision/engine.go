// Package decision combines commit impact and detected patterns into a
// semantic version increment.
package decision

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/maxbolgarin/autover/internal/model"
	"github.com/maxbolgarin/errm"
	"golang.org/x/mod/semver"
)

// Engine derives the version increment tier and the new version.
type Engine struct {
	cfg Config
}

// New creates a decision engine.
func New(cfg Config) *Engine {
	cfg.SetDefaults()
	return &Engine{cfg: cfg}
}

// Decide produces the version decision for one commit. Provenance is
// left empty; the caller sets it after applying the auto-apply gate.
func (e *Engine) Decide(impact model.CommitImpactAnalysis, pat model.PatternAnalysis, currentVersion string) (model.VersionDecision, error) {
	tier := e.DecideTier(impact, pat)

	newVersion, err := CalculateNewVersion(currentVersion, tier)
	if err != nil {
		return model.VersionDecision{}, errm.Wrap(err, "calculate new version")
	}

	return model.VersionDecision{
		CommitHash:     impact.CommitHash,
		CurrentVersion: currentVersion,
		Tier:           tier,
		NewVersion:     newVersion,
		Confidence:     Confidence(impact.MaxImpact, pat.Confidence),
		Timestamp:      time.Now().UTC(),
	}, nil
}

// DecideTier applies the decision rules in their exact order; the
// first satisfied branch wins.
func (e *Engine) DecideTier(impact model.CommitImpactAnalysis, pat model.PatternAnalysis) model.Tier {
	switch {
	case pat.Has(model.PatternMajor),
		impact.ImpactLevel == model.RiskHigh && pat.Confidence >= e.cfg.MajorConfidenceGate:
		return model.TierMajor
	case pat.Has(model.PatternMinor),
		impact.ImpactLevel == model.RiskMedium && pat.Confidence >= e.cfg.MinorConfidenceGate:
		return model.TierMinor
	default:
		return model.TierPatch
	}
}

// Confidence blends the commit impact with the pattern confidence.
// The result is always in [0, 1].
func Confidence(maxImpact, patternConfidence float64) float64 {
	confidence := (maxImpact/10 + patternConfidence) / 2
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// CalculateNewVersion bumps an X.Y.Z version by the given tier. The
// result is always strictly greater than the input under semver
// ordering; versions are never skipped or decremented.
func CalculateNewVersion(current string, tier model.Tier) (string, error) {
	major, minor, patch, err := parseVersion(current)
	if err != nil {
		return "", err
	}

	switch tier {
	case model.TierMajor:
		return fmt.Sprintf("%d.0.0", major+1), nil
	case model.TierMinor:
		return fmt.Sprintf("%d.%d.0", major, minor+1), nil
	case model.TierPatch:
		return fmt.Sprintf("%d.%d.%d", major, minor, patch+1), nil
	default:
		return "", errm.New("unknown version tier: %s", tier)
	}
}

// ValidateVersion checks that a string is a plain X.Y.Z version.
func ValidateVersion(version string) error {
	_, _, _, err := parseVersion(version)
	return err
}

// TierBetween derives the increment tier implied by two versions, used
// when a manual override bypasses the decision rules.
func TierBetween(oldVersion, newVersion string) model.Tier {
	oldMajor, oldMinor, _, errOld := parseVersion(oldVersion)
	newMajor, newMinor, _, errNew := parseVersion(newVersion)
	if errOld != nil || errNew != nil {
		return model.TierPatch
	}
	switch {
	case newMajor != oldMajor:
		return model.TierMajor
	case newMinor != oldMinor:
		return model.TierMinor
	default:
		return model.TierPatch
	}
}

func parseVersion(version string) (major, minor, patch int, err error) {
	// Plain X.Y.Z only: no prerelease or build metadata.
	if !semver.IsValid("v"+version) || strings.ContainsAny(version, "-+") {
		return 0, 0, 0, errm.Wrap(model.ErrInvalidVersion, version)
	}
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return 0, 0, 0, errm.Wrap(model.ErrInvalidVersion, version)
	}
	numbers := make([]int, 3)
	for i, part := range parts {
		numbers[i], err = strconv.Atoi(part)
		if err != nil {
			return 0, 0, 0, errm.Wrap(model.ErrInvalidVersion, version)
		}
	}
	return numbers[0], numbers[1], numbers[2], nil
}
