package domain

// DefaultBatchSize is the maximum number of addresses carried by one queue
// message. The final batch of a campaign may be smaller.
const DefaultBatchSize = 50

// BatchMessage is the queue payload for one delivery batch. Seq is the batch's
// position within the campaign and, together with CampaignID, forms the
// deduplication key for the counter merge.
type BatchMessage struct {
	CampaignID string   `json:"campaignId"`
	Seq        int      `json:"seq"`
	Emails     []string `json:"emails"`
	Subject    string   `json:"subject"`
	HTML       string   `json:"html"`
}

// PartitionEmails splits the snapshot into ordered, contiguous batches of at
// most size addresses. Order within and across batches follows the input, and
// every address appears exactly once.
func PartitionEmails(emails []string, size int) [][]string {
	if size < 1 {
		size = DefaultBatchSize
	}
	var batches [][]string
	for start := 0; start < len(emails); start += size {
		end := start + size
		if end > len(emails) {
			end = len(emails)
		}
		batches = append(batches, emails[start:end])
	}
	return batches
}
