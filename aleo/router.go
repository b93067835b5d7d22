// Package aleo routes WalletConnect method calls for the Aleo chain:
// eight request kinds, each either memoized behind a one-hour approval
// grant or pushed through the interactive approval window.
package aleo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/kestrelwallet/walletbridge/approval"
	"github.com/kestrelwallet/walletbridge/backend"
	"github.com/kestrelwallet/walletbridge/walletconnect"
)

// ChainID is the CAIP-2 identifier of the chain this router serves.
const ChainID = "aleo:1"

// Method names offered to dApps.
const (
	MethodGetBalance  = "getBalance"
	MethodGetAccount  = "getAccount"
	MethodDecrypt     = "decrypt"
	MethodSign        = "sign"
	MethodCreateEvent = "createEvent"
	MethodGetEvent    = "getEvent"
	MethodGetEvents   = "getEvents"
	MethodGetRecords  = "getRecords"
)

// Event names offered to dApps.
const (
	EventChainChanged   = "chainChanged"
	EventAccountChanged = "accountChanged"
)

// The native asset; an absent asset id means this.
const nativeAssetID = "credits"

// Router implements walletconnect.MethodHandler for the Aleo chain.
type Router struct {
	backend  backend.Invoker
	broker   *approval.Broker
	grants   *walletconnect.GrantCache
	metadata *walletconnect.MetadataCache
	log      *slog.Logger

	mu      sync.Mutex
	address string
}

var _ walletconnect.MethodHandler = (*Router)(nil)

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithLogger sets the structured logger. If not set, a default JSON
// logger writing to stderr is used.
func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.log = logger
	}
}

// NewRouter creates the Aleo method router.
func NewRouter(invoker backend.Invoker, broker *approval.Broker, grants *walletconnect.GrantCache, metadata *walletconnect.MetadataCache, opts ...RouterOption) *Router {
	r := &Router{
		backend:  invoker,
		broker:   broker,
		grants:   grants,
		metadata: metadata,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return r
}

func (r *Router) Chain() string {
	return ChainID
}

func (r *Router) Methods() []string {
	return []string{
		MethodGetBalance,
		MethodGetAccount,
		MethodDecrypt,
		MethodSign,
		MethodCreateEvent,
		MethodGetEvent,
		MethodGetEvents,
		MethodGetRecords,
	}
}

func (r *Router) Events() []string {
	return []string{EventChainChanged, EventAccountChanged}
}

// Invoke dispatches one request. Every path returns a response; nothing
// escapes as an error.
func (r *Router) Invoke(ctx context.Context, ev walletconnect.RequestEvent) walletconnect.Response {
	r.log.Info("session request",
		slog.Int64("request_id", ev.ID),
		slog.String("method", ev.Method))

	switch ev.Method {
	case MethodGetBalance:
		return r.getBalance(ctx, ev)
	case MethodGetAccount:
		return r.getAccount(ctx, ev)
	case MethodDecrypt:
		return r.decrypt(ctx, ev)
	case MethodSign:
		return r.sign(ctx, ev)
	case MethodCreateEvent:
		return r.createEvent(ctx, ev)
	case MethodGetEvent:
		return r.getEvent(ctx, ev)
	case MethodGetEvents:
		return r.getEvents(ctx, ev)
	case MethodGetRecords:
		return r.getRecords(ctx, ev)
	default:
		return walletconnect.NewError(ev.ID, walletconnect.CodeUnsupportedMethod,
			fmt.Sprintf("unsupported method %q", ev.Method))
	}
}

// dapp returns the cached metadata for the request's session; an unknown
// dApp yields empty descriptive fields, never a failure.
func (r *Router) dapp(topic string) walletconnect.DappMetadata {
	md, _ := r.metadata.Get(topic)
	return md
}

// prompt pre-fills the descriptive dApp fields of an approval prompt.
func (r *Router) prompt(md walletconnect.DappMetadata, method, question, imageRef string) approval.Prompt {
	return approval.Prompt{
		Method:   method,
		Question: question,
		ImageRef: imageRef,
		DappName: md.Name,
		DappURL:  md.URL,
		DappImg:  md.Icon(),
	}
}

// invokeBackend runs one engine command and shapes the outcome as a
// JSON-RPC response. Engine failures forward only the external message.
func (r *Router) invokeBackend(ctx context.Context, id int64, command string, req, resp any) walletconnect.Response {
	if err := r.backend.Invoke(ctx, command, req, resp); err != nil {
		r.log.Warn("backend command failed",
			slog.Int64("request_id", id),
			slog.String("command", command),
			"error", err)
		return walletconnect.NewError(id, walletconnect.CodeInternal, backend.External(err))
	}
	return walletconnect.NewResult(id, resp)
}

// memoized is the cached/low-friction read shape: skip the window while
// an approval grant is live, otherwise ask and remember the approval for
// an hour.
func (r *Router) memoized(ctx context.Context, ev walletconnect.RequestEvent, key string, p approval.Prompt, invoke func(context.Context) walletconnect.Response) walletconnect.Response {
	if !r.grants.Expired(key) {
		return invoke(ctx)
	}

	decision, err := r.broker.Request(ctx, p)
	if err != nil {
		return walletconnect.NewError(ev.ID, walletconnect.CodeInternal, err.Error())
	}
	if !decision.Approved {
		return walletconnect.NewUserRejected(ev.ID)
	}
	if err := r.grants.Remember(key); err != nil {
		r.log.Warn("recording approval grant", slog.String("key", key), "error", err)
	}
	return invoke(ctx)
}

// interactive is the always-ask shape: one window round trip, then the
// engine call built from the user's decision.
func (r *Router) interactive(ctx context.Context, ev walletconnect.RequestEvent, p approval.Prompt, invoke func(context.Context, approval.Decision) walletconnect.Response) walletconnect.Response {
	decision, err := r.broker.Request(ctx, p)
	if err != nil {
		return walletconnect.NewError(ev.ID, walletconnect.CodeInternal, err.Error())
	}
	if !decision.Approved {
		return walletconnect.NewUserRejected(ev.ID)
	}
	return invoke(ctx, decision)
}

// unmarshalParams decodes what it can; the engine validates the rest.
func (r *Router) unmarshalParams(ev walletconnect.RequestEvent, v any) {
	if len(ev.Params) == 0 {
		return
	}
	if err := json.Unmarshal(ev.Params, v); err != nil {
		r.log.Debug("ignoring malformed params",
			slog.Int64("request_id", ev.ID),
			slog.String("method", ev.Method),
			"error", err)
	}
}

func (r *Router) getBalance(ctx context.Context, ev walletconnect.RequestEvent) walletconnect.Response {
	var p balanceParams
	r.unmarshalParams(ev, &p)
	asset := p.AssetID
	if asset == "" {
		asset = nativeAssetID
	}

	md := r.dapp(ev.Topic)
	key := walletconnect.GrantKey(MethodGetBalance, md.Name, asset)
	prompt := r.prompt(md, MethodGetBalance,
		fmt.Sprintf("Do you want to share your %s balance?", asset), "balance")
	prompt.AssetID = asset

	return r.memoized(ctx, ev, key, prompt, func(ctx context.Context) walletconnect.Response {
		var resp backend.BalanceResponse
		return r.invokeBackend(ctx, ev.ID, backend.CommandGetBalance, backend.BalanceRequest{AssetID: asset}, &resp)
	})
}

// getAccount needs neither approval nor a window: the address is public
// to any connected dApp.
func (r *Router) getAccount(ctx context.Context, ev walletconnect.RequestEvent) walletconnect.Response {
	addr, err := r.accountAddress(ctx)
	if err != nil {
		return walletconnect.NewError(ev.ID, walletconnect.CodeInternal, backend.External(err))
	}
	return walletconnect.NewResult(ev.ID, accountResult{
		Address:          addr,
		ShortenedAddress: shortenAddress(addr),
	})
}

func (r *Router) decrypt(ctx context.Context, ev walletconnect.RequestEvent) walletconnect.Response {
	var p decryptParams
	r.unmarshalParams(ev, &p)

	md := r.dapp(ev.Topic)
	prompt := r.prompt(md, MethodDecrypt,
		fmt.Sprintf("Do you want to decrypt %d record(s)?", len(p.Ciphertexts)), "decrypt")
	prompt.Ciphertexts = p.Ciphertexts

	return r.interactive(ctx, ev, prompt, func(ctx context.Context, _ approval.Decision) walletconnect.Response {
		var resp backend.DecryptResponse
		return r.invokeBackend(ctx, ev.ID, backend.CommandDecryptRecords, backend.DecryptRequest{Ciphertexts: p.Ciphertexts}, &resp)
	})
}

func (r *Router) sign(ctx context.Context, ev walletconnect.RequestEvent) walletconnect.Response {
	var p signParams
	r.unmarshalParams(ev, &p)

	md := r.dapp(ev.Topic)
	prompt := r.prompt(md, MethodSign, "Do you want to sign this message?", "sign")
	prompt.Message = p.Message

	return r.interactive(ctx, ev, prompt, func(ctx context.Context, _ approval.Decision) walletconnect.Response {
		var resp backend.SignResponse
		return r.invokeBackend(ctx, ev.ID, backend.CommandSign, backend.SignRequest{Message: p.Message}, &resp)
	})
}

func (r *Router) createEvent(ctx context.Context, ev walletconnect.RequestEvent) walletconnect.Response {
	var p createEventParams
	r.unmarshalParams(ev, &p)

	md := r.dapp(ev.Topic)
	var prompt approval.Prompt
	if p.Type == backend.EventTypeDeploy {
		prompt = r.prompt(md, MethodCreateEvent,
			fmt.Sprintf("Do you want to deploy program %s?", p.ProgramID), "deploy")
	} else {
		prompt = r.prompt(md, MethodCreateEvent,
			fmt.Sprintf("Do you want to execute %s/%s?", p.ProgramID, p.FunctionID), "execute")
		prompt.FunctionID = p.FunctionID
		prompt.Inputs = p.Inputs
	}
	prompt.Type = p.Type
	prompt.ProgramID = p.ProgramID
	prompt.Fee = p.Fee

	return r.interactive(ctx, ev, prompt, func(ctx context.Context, d approval.Decision) walletconnect.Response {
		req := backend.CreateEventRequest{
			Type:       p.Type,
			ProgramID:  p.ProgramID,
			FunctionID: p.FunctionID,
			Inputs:     p.Inputs,
			Fee:        p.Fee,
			FeePrivate: d.FeeOption,
		}
		var resp backend.CreateEventResponse
		return r.invokeBackend(ctx, ev.ID, backend.CommandRequestCreateEvent, req, &resp)
	})
}

func (r *Router) getEvent(ctx context.Context, ev walletconnect.RequestEvent) walletconnect.Response {
	var p getEventParams
	r.unmarshalParams(ev, &p)

	md := r.dapp(ev.Topic)
	key := walletconnect.GrantKey(MethodGetEvent, md.Name, p.ID)
	prompt := r.prompt(md, MethodGetEvent, "Do you want to share your transaction history?", "events")

	return r.memoized(ctx, ev, key, prompt, func(ctx context.Context) walletconnect.Response {
		var resp backend.GetEventResponse
		return r.invokeBackend(ctx, ev.ID, backend.CommandGetEvent, backend.GetEventRequest{ID: p.ID}, &resp)
	})
}

func (r *Router) getEvents(ctx context.Context, ev walletconnect.RequestEvent) walletconnect.Response {
	var p getEventsParams
	r.unmarshalParams(ev, &p)

	var functionID, programID string
	if p.Filter != nil {
		functionID = p.Filter.FunctionID
		programID = p.Filter.ProgramID
	}

	md := r.dapp(ev.Topic)
	key := walletconnect.GrantKey(MethodGetEvents, md.Name, functionID, programID)
	prompt := r.prompt(md, MethodGetEvents, "Do you want to share your transaction history?", "events")
	prompt.ProgramID = programID
	prompt.FunctionID = functionID

	return r.memoized(ctx, ev, key, prompt, func(ctx context.Context) walletconnect.Response {
		req := backend.GetEventsRequest{Page: p.Page}
		if p.Filter != nil {
			req.Filter = &backend.EventsFilter{
				Type:       p.Filter.Type,
				ProgramID:  p.Filter.ProgramID,
				FunctionID: p.Filter.FunctionID,
			}
		}
		var resp backend.GetEventsResponse
		return r.invokeBackend(ctx, ev.ID, backend.CommandGetEvents, req, &resp)
	})
}

func (r *Router) getRecords(ctx context.Context, ev walletconnect.RequestEvent) walletconnect.Response {
	var p getRecordsParams
	r.unmarshalParams(ev, &p)

	var functionID string
	var programIDs []string
	if p.Filter != nil {
		functionID = p.Filter.FunctionID
		programIDs = p.Filter.ProgramIDs
	}

	md := r.dapp(ev.Topic)
	key := walletconnect.GrantKey(MethodGetRecords, md.Name, functionID, strings.Join(programIDs, ","))
	prompt := r.prompt(md, MethodGetRecords, "Do you want to share your records?", "records")
	prompt.ProgramIDs = programIDs
	prompt.FunctionID = functionID

	return r.memoized(ctx, ev, key, prompt, func(ctx context.Context) walletconnect.Response {
		req := backend.GetRecordsRequest{}
		if p.Filter != nil {
			req.Filter = &backend.RecordsFilter{
				ProgramIDs: p.Filter.ProgramIDs,
				FunctionID: p.Filter.FunctionID,
				Type:       p.Filter.Type,
			}
		}
		var resp backend.GetRecordsResponse
		if err := r.backend.Invoke(ctx, backend.CommandGetRecords, req, &resp); err != nil {
			return walletconnect.NewError(ev.ID, walletconnect.CodeInternal, backend.External(err))
		}
		flat := recordsResult{Records: []backend.Record{}}
		for _, set := range resp.RecordSets {
			flat.Records = append(flat.Records, set.Records...)
		}
		return walletconnect.NewResult(ev.ID, flat)
	})
}

// accountAddress fetches the wallet address from the engine once and
// caches it.
func (r *Router) accountAddress(ctx context.Context) (string, error) {
	r.mu.Lock()
	cached := r.address
	r.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	var resp backend.AddressResponse
	if err := r.backend.Invoke(ctx, backend.CommandGetAddress, nil, &resp); err != nil {
		return "", err
	}

	r.mu.Lock()
	r.address = resp.Address
	r.mu.Unlock()
	return resp.Address, nil
}

// shortenAddress renders the display form dApps show next to the full
// address, e.g. "aleo1abcde...vwxyz".
func shortenAddress(addr string) string {
	if len(addr) <= 16 {
		return addr
	}
	return addr[:10] + "..." + addr[len(addr)-5:]
}
