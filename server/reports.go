package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"

	"github.com/etnz/cardvault"
	"github.com/etnz/cardvault/renderer"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Server) snapshot(r *http.Request) (*cardvault.Snapshot, error) {
	l, err := s.store.Load(r.Context(), r.PathValue("name"))
	if err != nil {
		return nil, err
	}
	on, err := s.date(r, "date")
	if err != nil {
		return nil, err
	}
	if on.IsZero() {
		on = s.today()
	}
	return l.NewSnapshot(on), nil
}

func (s *Server) holdings(r *http.Request) (int, any, error) {
	snap, err := s.snapshot(r)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, renderer.NewHolding(snap, s.currencyOf(r)), nil
}

func (s *Server) history(r *http.Request) (int, any, error) {
	l, err := s.store.Load(r.Context(), r.PathValue("name"))
	if err != nil {
		return 0, nil, err
	}
	key, err := cardvault.ParseKey(r.PathValue("key"))
	if err != nil {
		return 0, nil, badRequest{err}
	}
	if _, ok := l.Printing(key); !ok {
		return 0, nil, fmt.Errorf("printing %q: %w", key, errNotFound)
	}
	from, err := s.date(r, "from")
	if err != nil {
		return 0, nil, err
	}
	to, err := s.date(r, "to")
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, renderer.NewHistory(l, key, r.URL.Query().Get("currency"), from, to), nil
}

func (s *Server) listings(r *http.Request) (int, any, error) {
	snap, err := s.snapshot(r)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, renderer.NewListings(snap, r.URL.Query().Get("all") != ""), nil
}

type listingRequest struct {
	Key       cardvault.PrintingKey `json:"key"`
	Condition cardvault.Condition   `json:"condition"`
	Quantity  cardvault.Quantity    `json:"quantity"`
	Price     cardvault.Money       `json:"price"`
	Memo      string                `json:"memo,omitempty"`
}

// createListing records a list transaction, after putting the copies for sale
// on CardTrader when the printing has a CardTrader blueprint.
func (s *Server) createListing(r *http.Request) (int, any, error) {
	var req listingRequest
	if err := decodeJSON(r, &req); err != nil {
		return 0, nil, err
	}
	name := r.PathValue("name")
	defer s.lock(name)()
	l, err := s.store.Load(r.Context(), name)
	if err != nil {
		return 0, nil, err
	}
	today := s.today()
	tx := cardvault.NewList(today, uuid.NewString(), "local", req.Key, req.Condition, req.Quantity, req.Price)
	tx.Memo = req.Memo
	checked, err := l.Validate(tx)
	if err != nil {
		return 0, nil, badRequest{err}
	}
	lst := checked.(cardvault.List)

	if s.market != nil {
		p, _ := l.Printing(lst.Key)
		if lst, err = s.market.Publish(r.Context(), p, lst); err != nil {
			return 0, nil, err
		}
	}
	fixed, err := s.commit(r, name, []cardvault.Transaction{lst})
	if err != nil {
		if s.market != nil {
			// no product stays for sale without a list transaction.
			if werr := s.market.Withdraw(r.Context(), cardvault.Listing{ID: lst.Listing, Marketplace: lst.Marketplace}); werr != nil {
				s.logger.Error("could not withdraw unrecorded listing", zap.String("collection", name), zap.String("listing", lst.Listing), zap.Error(werr))
			}
		}
		return 0, nil, err
	}
	l.Append(fixed...)
	out, _ := l.NewSnapshot(today).Listing(lst.Listing)
	return http.StatusCreated, out, nil
}

func (s *Server) deleteListing(r *http.Request) (int, any, error) {
	name, id := r.PathValue("name"), r.PathValue("id")
	defer s.lock(name)()
	l, err := s.store.Load(r.Context(), name)
	if err != nil {
		return 0, nil, err
	}
	today := s.today()
	lst, ok := l.NewSnapshot(today).Listing(id)
	if !ok || !lst.Open {
		return 0, nil, fmt.Errorf("open listing %q: %w", id, errNotFound)
	}
	if s.market != nil {
		if err := s.market.Withdraw(r.Context(), lst); err != nil {
			return 0, nil, err
		}
	}
	if _, err := s.commit(r, name, []cardvault.Transaction{cardvault.NewDelist(today, id)}); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]string{"delisted": id}, nil
}

// updatePrices quotes the printings held and saves the collection, since
// prices of the day are merged into an existing update.
func (s *Server) updatePrices(r *http.Request) (int, any, error) {
	name := r.PathValue("name")
	defer s.lock(name)()
	l, err := s.store.Load(r.Context(), name)
	if err != nil {
		return 0, nil, err
	}
	up, qerr := cardvault.UpdatePrices(r.Context(), l, s.today(), s.currencyOf(r), s.sources...)
	if len(up.Prices) == 0 && qerr != nil {
		return 0, nil, qerr
	}
	if err := s.store.Save(r.Context(), l); err != nil {
		return 0, nil, err
	}
	resp := map[string]any{"update": up, "priced": len(up.Prices)}
	if qerr != nil {
		var errs []string
		if joined, ok := qerr.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				errs = append(errs, e.Error())
			}
		} else {
			errs = append(errs, qerr.Error())
		}
		resp["errors"] = errs
		s.logger.Warn("some prices could not be updated", zap.String("collection", name), zap.Error(qerr))
	}
	return http.StatusOK, resp, nil
}

// report renders the holdings of a collection as an HTML page.
func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	md := renderer.RenderHolding(renderer.NewHolding(snap, s.currencyOf(r)))
	if lst := snap.OpenListings(); len(lst) > 0 {
		md += "\n" + renderer.RenderListings(renderer.NewListings(snap, false))
	}
	body, err := renderer.HTML(md)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, page, html.EscapeString(snap.Ledger().Name()), body)
}

const page = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>body{font-family:sans-serif;max-width:72em;margin:auto}table{border-collapse:collapse}td,th{padding:.2em .6em;border-bottom:1px solid #ddd}</style>
</head>
<body>
%s
</body>
</html>
`

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		return invalid("invalid request: %v", err)
	}
	return nil
}
