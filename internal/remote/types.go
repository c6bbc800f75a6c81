// Package remote is a thin client for the spreadsheet-backed document store.
// The endpoint is a deployed script acting as a REST facade over a sheet:
// reads are GETs with an action query parameter, writes are POSTs with an
// action field in the JSON body. Application errors come back as
// {success:false, error} inside an HTTP 200, so callers check the envelope,
// never the status code, except for transport failures.
package remote

// WorkOrder is the wire shape of a work order.
type WorkOrder struct {
	WONumber     string     `json:"woNumber"`
	JobName      string     `json:"jobName"`
	Client       string     `json:"client"`
	Category     string     `json:"category"`
	Status       string     `json:"status,omitempty"`
	Address      string     `json:"address"`
	JobNotes     string     `json:"jobNotes,omitempty"`
	SalesRep     string     `json:"salesRep"`
	LineItems    []LineItem `json:"lineItems"`
	LastModified string     `json:"lastModified,omitempty"`
}

type LineItem struct {
	LineNumber  int     `json:"lineNumber"`
	ItemName    string  `json:"itemName"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
}

type ProgressItem struct {
	Index             int      `json:"index"`
	QuantityCompleted float64  `json:"quantityCompleted"`
	HoursUsed         *float64 `json:"hoursUsed,omitempty"`
	Status            string   `json:"status"`
	Notes             string   `json:"notes,omitempty"`
	LastUpdated       string   `json:"lastUpdated,omitempty"`
	ModifiedBy        string   `json:"modifiedBy,omitempty"`
}

type ProgressSet struct {
	WONumber string         `json:"woNumber"`
	Items    []ProgressItem `json:"items"`
}

// Summary is the server-side aggregate for one work order.
type Summary struct {
	WONumber       string  `json:"woNumber"`
	JobName        string  `json:"jobName"`
	Percentage     int     `json:"percentage"`
	CompletedItems int     `json:"completedItems"`
	TotalItems     int     `json:"totalItems"`
	CompletedHours float64 `json:"completedHours"`
	TotalHours     float64 `json:"totalHours"`
	RemainingHours float64 `json:"remainingHours"`
}

type PingResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type GetAllResponse struct {
	Success      bool                   `json:"success"`
	WorkOrders   []WorkOrder            `json:"workOrders"`
	ProgressData map[string]ProgressSet `json:"progressData"`
	LastSync     string                 `json:"lastSync"`
}

type GetWorkOrdersResponse struct {
	Success    bool        `json:"success"`
	WorkOrders []WorkOrder `json:"workOrders"`
}

type GetProgressResponse struct {
	Success  bool         `json:"success"`
	Progress *ProgressSet `json:"progress"`
}

type GetSummaryResponse struct {
	Success bool    `json:"success"`
	Summary Summary `json:"summary"`
}

type SaveResult struct {
	Success   bool   `json:"success"`
	Added     int    `json:"added"`
	Updated   int    `json:"updated"`
	Total     int    `json:"total"`
	Timestamp string `json:"timestamp"`
}

type UpdateProgressResult struct {
	Success      bool   `json:"success"`
	WONumber     string `json:"woNumber"`
	ItemsUpdated int    `json:"itemsUpdated"`
	Timestamp    string `json:"timestamp"`
}

type DeleteResult struct {
	Success bool `json:"success"`
	Deleted bool `json:"deleted"`
}

type ClearResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
