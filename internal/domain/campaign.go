package domain

import "time"

// CampaignStatus is a forward-only state machine:
// queued → sending → completed | failed.
type CampaignStatus string

const (
	CampaignQueued    CampaignStatus = "queued"
	CampaignSending   CampaignStatus = "sending"
	CampaignCompleted CampaignStatus = "completed"
	CampaignFailed    CampaignStatus = "failed"
)

// Campaign is one bulk send. Total is set exactly once, when the active
// subscriber snapshot is taken; Sent and Failed accumulate as batches report.
type Campaign struct {
	ID        string         `json:"id"`
	Subject   string         `json:"subject"`
	HTML      string         `json:"html"`
	Status    CampaignStatus `json:"status"`
	Total     int            `json:"total"`
	Sent      int            `json:"sent"`
	Failed    int            `json:"failed"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Done reports whether every address in the snapshot has an outcome.
func (c *Campaign) Done() bool {
	return c.Sent+c.Failed >= c.Total
}

// CampaignInput is the inbound payload for dispatching a campaign.
// The content is opaque to the dispatcher.
type CampaignInput struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

func (in *CampaignInput) Validate() error {
	if in.Subject == "" {
		return ErrEmptySubject
	}
	if in.HTML == "" {
		return ErrEmptyBody
	}
	return nil
}

// CampaignUpdate is a shallow partial update; nil fields are left untouched.
// UpdatedAt is always refreshed by the store.
type CampaignUpdate struct {
	Status *CampaignStatus
	Total  *int
	Sent   *int
	Failed *int
}
