package patterns

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wolfman30/scam-honeypot/internal/models"
)

// ErrInvalidOverrides is returned when an overrides document cannot be applied.
var ErrInvalidOverrides = errors.New("patterns: invalid overrides")

// Overrides is the on-disk format used to extend the built-in library
// without a rebuild. Entries are appended to the defaults.
type Overrides struct {
	Version           string           `yaml:"version"`
	Scam              []SignalOverride `yaml:"scam"`
	Payment           []SignalOverride `yaml:"payment"`
	Benign            []SignalOverride `yaml:"benign"`
	Disengage         []SignalOverride `yaml:"disengage"`
	UPIProviders      []string         `yaml:"upiProviders"`
	TrustedDomains    []string         `yaml:"trustedDomains"`
	HostingDomains    []string         `yaml:"hostingDomains"`
	Shorteners        []string         `yaml:"shorteners"`
	DeceptiveKeywords []string         `yaml:"deceptiveKeywords"`
}

// SignalOverride describes one additional signal.
type SignalOverride struct {
	Name     string  `yaml:"name"`
	Category string  `yaml:"category"`
	Weight   float64 `yaml:"weight"`
	Pattern  string  `yaml:"pattern"`
}

// LoadFile builds the default library extended with the overrides in path.
func LoadFile(path string, opts ...Option) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("patterns: open overrides: %w", err)
	}
	defer f.Close()
	return Load(f, opts...)
}

// Load builds the default library extended with overrides read from r.
func Load(r io.Reader, opts ...Option) (*Library, error) {
	var o Overrides
	if err := yaml.NewDecoder(r).Decode(&o); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("patterns: decode overrides: %w", err)
	}
	return o.Apply(opts...)
}

// Apply returns a new library containing the defaults plus o.
func (o Overrides) Apply(opts ...Option) (*Library, error) {
	l := Default(opts...)
	if o.Version != "" {
		l.version = o.Version
	}
	groups := map[SignalGroup][]SignalOverride{
		GroupScam:      o.Scam,
		GroupPayment:   o.Payment,
		GroupBenign:    o.Benign,
		GroupDisengage: o.Disengage,
	}
	for group, extra := range groups {
		for _, so := range extra {
			sig, err := so.compile(group)
			if err != nil {
				return nil, err
			}
			l.signals[group] = append(l.signals[group], sig)
		}
	}
	addAll(l.upiProviders, o.UPIProviders)
	addAll(l.trustedDomains, o.TrustedDomains)
	addAll(l.hostingDomains, o.HostingDomains)
	addAll(l.shorteners, o.Shorteners)
	for _, kw := range o.DeceptiveKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			l.deceptive = append(l.deceptive, kw)
		}
	}
	return l, nil
}

func (so SignalOverride) compile(group SignalGroup) (Signal, error) {
	if strings.TrimSpace(so.Name) == "" {
		return Signal{}, fmt.Errorf("%w: %s signal without a name", ErrInvalidOverrides, group)
	}
	re, err := regexp.Compile(so.Pattern)
	if err != nil {
		return Signal{}, fmt.Errorf("%w: signal %q: %v", ErrInvalidOverrides, so.Name, err)
	}
	weight := so.Weight
	if weight <= 0 || weight > 1 {
		weight = 0.5
	}
	cat := models.ParseCategory(so.Category)
	if group != GroupScam && so.Category == "" {
		cat = models.CategoryNone
	}
	return Signal{Name: so.Name, Category: cat, Weight: weight, re: re}, nil
}

func addAll(set map[string]struct{}, values []string) {
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			set[v] = struct{}{}
		}
	}
}
