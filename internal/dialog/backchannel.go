package dialog

import (
	"fmt"
	"math/rand"
	"os"
	"strings"

	_ "embed"

	"github.com/valikhov/intervue/internal/scenario"
	"gopkg.in/yaml.v3"
)

//go:embed backchannel.yaml
var defaultBankYAML []byte

const (
	defaultPositiveThreshold = 0.7
	defaultNegativeThreshold = 0.3

	// Last-resort phrases when even the common tier is missing from
	// the artifact.
	builtinPositive = "I see."
	builtinNeutral  = "Could you clarify that, please?"
	builtinNegative = "Understood, but I need details."
)

type bankSelection struct {
	PositiveThreshold float64 `yaml:"positive_threshold"`
	NegativeThreshold float64 `yaml:"negative_threshold"`
}

type rolePhrases struct {
	Positive []string `yaml:"positive"`
	Neutral  []string `yaml:"neutral"`
	Negative []string `yaml:"negative"`
}

type commonPhrases struct {
	GenericPositive []string `yaml:"generic_positive"`
	GenericNeutral  []string `yaml:"generic_neutral"`
	GenericNegative []string `yaml:"generic_negative"`
}

type bankConfig struct {
	Selection          bankSelection          `yaml:"selection"`
	UncertaintyMarkers []string               `yaml:"uncertainty_markers"`
	Roles              map[string]rolePhrases `yaml:"roles"`
	Common             commonPhrases          `yaml:"common"`
}

// PhraseBank holds the role-keyed canned replies and backchannel
// acknowledgments. Immutable after load; the randomness source is
// injected so tests can pin phrase selection.
type PhraseBank struct {
	cfg  bankConfig
	intn func(n int) int
}

// LoadPhraseBank reads a phrase-bank artifact, falling back to the
// embedded default when path is empty. The rand source may be nil, in
// which case selection always takes the first phrase of a bucket.
func LoadPhraseBank(path string, rng *rand.Rand) (*PhraseBank, error) {
	data := defaultBankYAML
	if strings.TrimSpace(path) != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading phrase bank: %w", err)
		}
		data = fileData
	}

	var cfg bankConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing phrase bank: %w", err)
	}

	if cfg.Selection.PositiveThreshold == 0 {
		cfg.Selection.PositiveThreshold = defaultPositiveThreshold
	}
	if cfg.Selection.NegativeThreshold == 0 {
		cfg.Selection.NegativeThreshold = defaultNegativeThreshold
	}

	bank := &PhraseBank{cfg: cfg}
	if rng != nil {
		bank.intn = rng.Intn
	}

	return bank, nil
}

// Pick selects a canned reply for the profile, bucketed by score:
// at or above the positive threshold the positive bank, at or below
// the negative threshold the negative bank, the neutral bank between.
func (b *PhraseBank) Pick(profile scenario.RoleProfile, score float64) string {
	role, common, builtin := b.buckets(score)

	if phrases, ok := role[string(profile)]; ok && len(phrases) > 0 {
		return b.choose(phrases)
	}
	if len(common) > 0 {
		return b.choose(common)
	}
	return builtin
}

// Backchannel selects the immediate acknowledgment phrase sent before
// any scoring happens. Bucketed at an assumed neutral score; it does
// not affect scoring.
func (b *PhraseBank) Backchannel(profile scenario.RoleProfile) string {
	return b.Pick(profile, 0.5)
}

// HasUncertainty reports whether the transcript contains one of the
// configured explicit uncertainty markers.
func (b *PhraseBank) HasUncertainty(transcript string) bool {
	t := strings.ToLower(transcript)
	for _, marker := range b.cfg.UncertaintyMarkers {
		if marker = strings.ToLower(strings.TrimSpace(marker)); marker == "" {
			continue
		}
		if strings.Contains(t, marker) {
			return true
		}
	}
	return false
}

func (b *PhraseBank) PositiveThreshold() float64 { return b.cfg.Selection.PositiveThreshold }
func (b *PhraseBank) NegativeThreshold() float64 { return b.cfg.Selection.NegativeThreshold }

func (b *PhraseBank) buckets(score float64) (map[string][]string, []string, string) {
	role := make(map[string][]string, len(b.cfg.Roles))

	switch {
	case score >= b.cfg.Selection.PositiveThreshold:
		for name, phrases := range b.cfg.Roles {
			role[name] = phrases.Positive
		}
		return role, b.cfg.Common.GenericPositive, builtinPositive
	case score <= b.cfg.Selection.NegativeThreshold:
		for name, phrases := range b.cfg.Roles {
			role[name] = phrases.Negative
		}
		return role, b.cfg.Common.GenericNegative, builtinNegative
	default:
		for name, phrases := range b.cfg.Roles {
			role[name] = phrases.Neutral
		}
		return role, b.cfg.Common.GenericNeutral, builtinNeutral
	}
}

func (b *PhraseBank) choose(phrases []string) string {
	if len(phrases) == 0 {
		return ""
	}
	if b.intn == nil {
		return phrases[0]
	}
	return phrases[b.intn(len(phrases))]
}
