package backend

// Event types understood by the engine.
const (
	EventTypeExecute = "Execute"
	EventTypeDeploy  = "Deploy"
)

// AddressResponse answers get_address.
type AddressResponse struct {
	Address string `json:"address"`
}

// BalanceRequest asks for the balance of one asset. An empty AssetID
// means the native credits asset.
type BalanceRequest struct {
	AssetID string `json:"asset_id,omitempty"`
}

// Balance is the engine's per-asset balance split.
type Balance struct {
	AssetID string  `json:"asset_id"`
	Private float64 `json:"private"`
	Public  float64 `json:"public"`
}

// BalanceResponse answers get_balance.
type BalanceResponse struct {
	Balances []Balance `json:"balances"`
}

// DecryptRequest carries record ciphertexts to decrypt.
type DecryptRequest struct {
	Ciphertexts []string `json:"ciphertexts"`
}

// DecryptResponse answers decrypt_records.
type DecryptResponse struct {
	Plaintexts []string `json:"plaintexts"`
}

// SignRequest asks the engine to sign an arbitrary message with the
// account key.
type SignRequest struct {
	Message string `json:"message"`
}

// SignResponse answers sign.
type SignResponse struct {
	Signature string `json:"signature"`
}

// CreateEventRequest asks the engine to build and broadcast an on-chain
// event: a program execution or a deployment. FunctionID and Inputs are
// only meaningful for executions. FeePrivate carries the user's choice
// from the approval window.
type CreateEventRequest struct {
	Type       string   `json:"type"`
	ProgramID  string   `json:"program_id"`
	FunctionID string   `json:"function_id,omitempty"`
	Inputs     []string `json:"inputs,omitempty"`
	Fee        float64  `json:"fee"`
	FeePrivate bool     `json:"fee_private"`
}

// CreateEventResponse answers request_create_event.
type CreateEventResponse struct {
	EventID string `json:"event_id"`
}

// Event is the engine's view of a past or in-flight event.
type Event struct {
	ID            string   `json:"_id"`
	Type          string   `json:"type"`
	ProgramID     string   `json:"program_id,omitempty"`
	FunctionID    string   `json:"function_id,omitempty"`
	Status        string   `json:"status"`
	TransactionID string   `json:"transaction_id,omitempty"`
	Inputs        []string `json:"inputs,omitempty"`
	Fee           float64  `json:"fee,omitempty"`
	Error         string   `json:"error,omitempty"`
	Created       string   `json:"created,omitempty"`
}

// GetEventRequest asks for a single event by id.
type GetEventRequest struct {
	ID string `json:"id"`
}

// GetEventResponse answers get_event.
type GetEventResponse struct {
	Event *Event `json:"event,omitempty"`
}

// EventsFilter narrows a get_events query.
type EventsFilter struct {
	Type       string `json:"type,omitempty"`
	ProgramID  string `json:"program_id,omitempty"`
	FunctionID string `json:"function_id,omitempty"`
}

// GetEventsRequest asks for a page of events.
type GetEventsRequest struct {
	Filter *EventsFilter `json:"filter,omitempty"`
	Page   int           `json:"page,omitempty"`
}

// GetEventsResponse answers get_events.
type GetEventsResponse struct {
	Events    []Event `json:"events"`
	PageCount int     `json:"page_count,omitempty"`
}

// RecordsFilter narrows a get_records query.
type RecordsFilter struct {
	ProgramIDs []string `json:"program_ids,omitempty"`
	FunctionID string   `json:"function_id,omitempty"`
	Type       string   `json:"type,omitempty"`
}

// GetRecordsRequest asks for the account's records.
type GetRecordsRequest struct {
	Filter *RecordsFilter `json:"filter,omitempty"`
}

// Record is one owned record.
type Record struct {
	RecordID  string `json:"_id"`
	EventID   string `json:"event_id,omitempty"`
	Plaintext string `json:"record_plaintext"`
	Spent     bool   `json:"spent"`
}

// RecordSet groups the records of one program, the shape the engine
// reports them in.
type RecordSet struct {
	ProgramID string   `json:"program_id"`
	Records   []Record `json:"records"`
}

// GetRecordsResponse answers get_records. Callers that need a flat list
// (the WalletConnect surface does) flatten the sets themselves.
type GetRecordsResponse struct {
	RecordSets []RecordSet `json:"record_sets"`
}
