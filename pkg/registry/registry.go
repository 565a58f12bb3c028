package registry

import (
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Registry keeps the event records in memory for the lifetime of the
// process. All methods are safe for concurrent use.
type Registry struct {
	now      func() time.Time
	newID    func() string
	validate *validator.Validate

	mu        sync.RWMutex
	zones     []Zone
	alerts    []Alert
	incidents []Incident
	profiles  map[string]Profile
	sos       []SOSAlert
	donations []Donation
	seva      []SevaRequest
	bins      []Bin
}

type Option func(*Registry)

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(r *Registry) {
		if newID != nil {
			r.newID = newID
		}
	}
}

// New returns a registry seeded with the demo records, timestamped relative
// to the registry clock.
func New(opts ...Option) *Registry {
	r := &Registry{
		now:      time.Now,
		newID:    uuid.NewString,
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(r)
	}

	now := r.now().UTC()
	r.zones = fixtureZones()
	r.alerts = fixtureAlerts(now)
	r.incidents = fixtureIncidents(now)
	r.profiles = fixtureProfiles()
	r.sos = fixtureSOSAlerts(now)
	r.donations = fixtureDonations(now)
	r.seva = fixtureSevaRequests(now)
	r.bins = fixtureBins(now)

	return r
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (r *Registry) check(req any) error {
	if err := r.validate.Struct(req); err != nil {
		return newValidationError(err)
	}
	return nil
}

func (r *Registry) Zones() []Zone {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.zones, func(z Zone, _ int) Zone {
		z.Coordinates = slices.Clone(z.Coordinates)
		return z
	})
}

func (r *Registry) Alerts() []Alert {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.alerts)
}

func (r *Registry) Incidents() []Incident {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.incidents, func(i Incident, _ int) Incident {
		i.Images = slices.Clone(i.Images)
		return i
	})
}

func (r *Registry) SOSAlerts() []SOSAlert {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.sos)
}

func (r *Registry) Donations() []Donation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.donations)
}

func (r *Registry) SevaRequests() []SevaRequest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.seva)
}

func (r *Registry) Bins() []Bin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.bins)
}

func (r *Registry) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Summary{
		OpenIncidents: lo.CountBy(r.incidents, func(i Incident) bool { return i.Status != IncidentResolved }),
		ActiveSOS:     lo.CountBy(r.sos, func(s SOSAlert) bool { return s.Status == SOSActive }),
		DonationTotal: lo.SumBy(r.donations, func(d Donation) float64 { return d.Amount }),
		DonationCount: len(r.donations),
		PendingSeva:   lo.CountBy(r.seva, func(s SevaRequest) bool { return s.Status == "pending" }),
		CriticalBins:  lo.CountBy(r.bins, func(b Bin) bool { return b.Status == "critical" }),
		HighCrowdZones: lo.FilterMap(r.zones, func(z Zone, _ int) (string, bool) {
			return z.Name, z.Level == CrowdHigh || z.Level == CrowdCritical
		}),
	}
}
