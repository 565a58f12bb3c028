package registry

import (
	"fmt"
	"slices"
	"strings"
)

// ReportIncident files a new pending incident from the public form.
func (r *Registry) ReportIncident(req IncidentRequest) (Incident, error) {
	if err := r.check(req); err != nil {
		return Incident{}, err
	}

	incident := Incident{
		ID:            r.newID(),
		Type:          req.Type,
		Description:   strings.TrimSpace(req.Description),
		Location:      *req.Location,
		LocationName:  strings.TrimSpace(req.LocationName),
		Images:        slices.Clone(req.Images),
		ReporterName:  strings.TrimSpace(req.ReporterName),
		ReporterPhone: strings.TrimSpace(req.ReporterPhone),
		Timestamp:     r.now().UTC(),
		Status:        IncidentPending,
	}

	r.mu.Lock()
	r.incidents = slices.Insert(r.incidents, 0, incident)
	r.mu.Unlock()

	return incident, nil
}

func (r *Registry) UpdateIncidentStatus(id string, status IncidentStatus) (Incident, error) {
	if !status.Valid() {
		return Incident{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.IndexFunc(r.incidents, func(i Incident) bool { return i.ID == id })
	if idx < 0 {
		return Incident{}, fmt.Errorf("incident %s: %w", id, ErrNotFound)
	}

	r.incidents[idx].Status = status
	updated := r.incidents[idx]
	updated.Images = slices.Clone(updated.Images)
	return updated, nil
}
