package routing

// LeadSourceType is the channel kind an appeal arrives from.
type LeadSourceType string

const (
	LeadSourceBot LeadSourceType = "BOT"
)

// LeadSource determines which operators are eligible for an appeal, via the
// routing edges bound to it.
type LeadSource struct {
	LeadSourceID uint64
	Type         LeadSourceType
	CreatedAt    string
}
