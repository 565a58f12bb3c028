package registry

import (
	"fmt"
	"slices"
	"strings"
)

// LookupBand resolves a scanned band code or typed user id to a profile.
// Any code containing a registered user id matches that user.
func (r *Registry) LookupBand(code string) (Profile, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Profile{}, fmt.Errorf("%w: band code is required", ErrInvalidInput)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		if strings.Contains(code, id) {
			profile := r.profiles[id]
			profile.MedicalConditions = slices.Clone(profile.MedicalConditions)
			return profile, nil
		}
	}

	return Profile{}, fmt.Errorf("band %q: %w", code, ErrNotFound)
}

// RaiseSOS opens an active SOS alert for the band holder at location.
func (r *Registry) RaiseSOS(userID string, location Coordinates) (SOSAlert, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return SOSAlert{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if err := r.check(location); err != nil {
		return SOSAlert{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.profiles[userID]
	if !ok {
		return SOSAlert{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	alert := SOSAlert{
		ID:               r.newID(),
		UserID:           profile.ID,
		UserName:         profile.Name,
		UserPhone:        profile.Phone,
		EmergencyContact: profile.EmergencyContact,
		Location:         location,
		Timestamp:        r.now().UTC(),
		Status:           SOSActive,
	}
	r.sos = slices.Insert(r.sos, 0, alert)

	return alert, nil
}

func (r *Registry) UpdateSOSStatus(id string, status SOSStatus) (SOSAlert, error) {
	if !status.Valid() {
		return SOSAlert{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.IndexFunc(r.sos, func(a SOSAlert) bool { return a.ID == id })
	if idx < 0 {
		return SOSAlert{}, fmt.Errorf("sos alert %s: %w", id, ErrNotFound)
	}

	r.sos[idx].Status = status
	return r.sos[idx], nil
}
