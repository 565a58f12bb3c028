package registry

import (
	"slices"
	"strings"
)

func (r *Registry) Donate(req DonationRequest) (Donation, error) {
	if err := r.check(req); err != nil {
		return Donation{}, err
	}

	donation := Donation{
		ID:           r.newID(),
		DonorName:    strings.TrimSpace(req.DonorName),
		Amount:       req.Amount,
		MobileNumber: strings.TrimSpace(req.MobileNumber),
		Purpose:      req.Purpose,
		Timestamp:    r.now().UTC(),
		Status:       "completed",
	}

	r.mu.Lock()
	r.donations = slices.Insert(r.donations, 0, donation)
	r.mu.Unlock()

	return donation, nil
}

func (r *Registry) RequestSeva(req SevaInput) (SevaRequest, error) {
	if err := r.check(req); err != nil {
		return SevaRequest{}, err
	}

	request := SevaRequest{
		ID:            r.newID(),
		Type:          req.Type,
		RequesterName: strings.TrimSpace(req.RequesterName),
		MobileNumber:  strings.TrimSpace(req.MobileNumber),
		Description:   strings.TrimSpace(req.Description),
		PreferredTime: strings.TrimSpace(req.PreferredTime),
		Timestamp:     r.now().UTC(),
		Status:        "pending",
	}

	r.mu.Lock()
	r.seva = slices.Insert(r.seva, 0, request)
	r.mu.Unlock()

	return request, nil
}
