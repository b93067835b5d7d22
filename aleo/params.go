package aleo

import "github.com/kestrelwallet/walletbridge/backend"

// Request params as dApps send them. Malformed or missing fields are not
// validated here; the engine is the source of truth and its errors come
// back as JSON-RPC errors.

type balanceParams struct {
	AssetID string `json:"assetId,omitempty"`
}

type decryptParams struct {
	Ciphertexts []string `json:"ciphertexts"`
}

type signParams struct {
	Message string `json:"message"`
}

type createEventParams struct {
	Type       string   `json:"type"`
	ProgramID  string   `json:"programId"`
	FunctionID string   `json:"functionId,omitempty"`
	Inputs     []string `json:"inputs,omitempty"`
	Fee        float64  `json:"fee"`
}

type getEventParams struct {
	ID string `json:"id"`
}

type eventsFilter struct {
	Type       string `json:"type,omitempty"`
	ProgramID  string `json:"programId,omitempty"`
	FunctionID string `json:"functionId,omitempty"`
}

type getEventsParams struct {
	Filter *eventsFilter `json:"filter,omitempty"`
	Page   int           `json:"page,omitempty"`
}

type recordsFilter struct {
	ProgramIDs []string `json:"programIds,omitempty"`
	FunctionID string   `json:"functionId,omitempty"`
	Type       string   `json:"type,omitempty"`
}

type getRecordsParams struct {
	Filter *recordsFilter `json:"filter,omitempty"`
}

// Results the dApp receives.

type accountResult struct {
	Address          string `json:"address"`
	ShortenedAddress string `json:"shortenedAddress"`
}

// recordsResult flattens the engine's per-program record sets into the
// single list dApps expect.
type recordsResult struct {
	Records []backend.Record `json:"records"`
}
