package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"jackpotchain/core/types"
	"jackpotchain/crypto"
	"jackpotchain/native/jackpot"
)

// Amounts are rendered as base-10 strings so clients never lose precision.

type RoundResponse struct {
	ID                         uint64 `json:"id"`
	Phase                      string `json:"phase"`
	StartTime                  int64  `json:"startTime"`
	Deadline                   int64  `json:"deadline"`
	LastBidder                 string `json:"lastBidder,omitempty"`
	LastBidTime                int64  `json:"lastBidTime,omitempty"`
	BidCount                   uint64 `json:"bidCount"`
	CurrentPrice               string `json:"currentPrice"`
	Pot                        string `json:"pot"`
	CharityAmount              string `json:"charityAmount"`
	TimeUntilWithdrawalSeconds int64  `json:"timeUntilWithdrawalSeconds"`
	Now                        int64  `json:"now"`
}

type SettlementResponse struct {
	RoundID      uint64 `json:"roundId"`
	Winner       string `json:"winner"`
	BidCount     uint64 `json:"bidCount"`
	Pot          string `json:"pot"`
	CharityCut   string `json:"charityCut"`
	WinnerPayout string `json:"winnerPayout"`
	NextSeed     string `json:"nextSeed"`
	ClaimedAt    int64  `json:"claimedAt"`
}

type AccountResponse struct {
	Address       string `json:"address"`
	Nonce         uint64 `json:"nonce"`
	Balance       string `json:"balance"`
	RewardBalance string `json:"rewardBalance"`
}

type StatsResponse struct {
	LifetimeBids  uint64 `json:"lifetimeBids"`
	RoundsSettled uint64 `json:"roundsSettled"`
	TotalDonated  string `json:"totalDonated"`
	TotalCharity  string `json:"totalCharity"`
	TotalPaidOut  string `json:"totalPaidOut"`
}

type SolvencyResponse struct {
	Solvent bool   `json:"solvent"`
	Vault   string `json:"vault"`
	Pot     string `json:"pot"`
	Detail  string `json:"detail,omitempty"`
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	view, err := s.node.Round()
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	round := view.Round
	resp := RoundResponse{
		ID:                         round.ID,
		Phase:                      view.Phase.String(),
		StartTime:                  round.StartTime,
		Deadline:                   round.Deadline,
		BidCount:                   round.BidCount,
		CurrentPrice:               amountString(round.CurrentPrice),
		Pot:                        amountString(round.Pot),
		CharityAmount:              amountString(view.CharityAmount),
		TimeUntilWithdrawalSeconds: int64(view.TimeUntilWithdrawal.Seconds()),
		Now:                        view.Now,
	}
	if round.HasBidder {
		resp.LastBidder = crypto.FormatAddress(round.LastBidder)
		resp.LastBidTime = round.LastBidTime
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	price, err := s.node.BidPrice()
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"price": price.String()})
}

func (s *Server) handlePot(w http.ResponseWriter, r *http.Request) {
	pot, err := s.node.CurrentPot()
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"pot": pot.String()})
}

func (s *Server) handleCharity(w http.ResponseWriter, r *http.Request) {
	amount, err := s.node.CurrentCharityAmount()
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	cfg, err := s.node.Config()
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"charityAmount": amount.String(),
		"charityBps":    cfg.CharityBps,
		"charity":       crypto.FormatAddress(cfg.Charity),
	})
}

func (s *Server) handleCountdown(w http.ResponseWriter, r *http.Request) {
	remaining, err := s.node.TimeUntilWithdrawal()
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"seconds": int64(remaining.Seconds())})
}

func (s *Server) handleDurations(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.node.Config()
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{
		"baseSeconds":      int64(cfg.BaseDuration.Seconds()),
		"extensionSeconds": int64(cfg.ExtensionDuration.Seconds()),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.node.Stats()
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		LifetimeBids:  stats.LifetimeBids,
		RoundsSettled: stats.RoundsSettled,
		TotalDonated:  amountString(stats.TotalDonated),
		TotalCharity:  amountString(stats.TotalCharity),
		TotalPaidOut:  amountString(stats.TotalPaidOut),
	})
}

func parseID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "validation", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	settlement, found, err := s.node.Settlement(id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "round not settled")
		return
	}
	writeJSON(w, http.StatusOK, settlementResponse(settlement))
}

func settlementResponse(st *jackpot.Settlement) SettlementResponse {
	return SettlementResponse{
		RoundID:      st.RoundID,
		Winner:       crypto.FormatAddress(st.Winner),
		BidCount:     st.BidCount,
		Pot:          amountString(st.Pot),
		CharityCut:   amountString(st.CharityCut),
		WinnerPayout: amountString(st.WinnerPayout),
		NextSeed:     amountString(st.NextSeed),
		ClaimedAt:    st.ClaimedAt,
	}
}

func (s *Server) handleTrophy(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	trophy, found, err := s.node.Trophy(id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "trophy not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       trophy.ID,
		"roundId":  trophy.RoundID,
		"owner":    crypto.FormatAddress(trophy.Owner),
		"mintedAt": trophy.MintedAt,
	})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := crypto.ParseAddress(chi.URLParam(r, "addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	view, err := s.node.Account(addr)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AccountResponse{
		Address:       crypto.FormatAddress(view.Address),
		Nonce:         view.Nonce,
		Balance:       amountString(view.Balance),
		RewardBalance: amountString(view.RewardBalance),
	})
}

// handleSubmit applies a signed transaction. Owner setters are accepted only
// on the admin route and everything else only on the public one.
func (s *Server) handleSubmit(admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var tx types.Transaction
		dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&tx); err != nil {
			writeError(w, http.StatusBadRequest, "validation", "invalid transaction format")
			return
		}
		if !tx.Type.Valid() {
			writeError(w, http.StatusBadRequest, "validation", "unknown transaction type")
			return
		}
		if tx.Type.Admin() != admin {
			if admin {
				writeError(w, http.StatusBadRequest, "validation", "only endpoint setters are accepted here")
			} else {
				writeError(w, http.StatusForbidden, "configuration", "endpoint setters require the admin API")
			}
			return
		}
		receipt, err := s.node.ApplyTransaction(r.Context(), &tx)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, receipt)
	}
}

func (s *Server) handleSolvency(w http.ResponseWriter, r *http.Request) {
	vault, err := s.node.VaultBalance()
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	pot, err := s.node.CurrentPot()
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	resp := SolvencyResponse{Solvent: true, Vault: vault.String(), Pot: pot.String()}
	if err := s.node.CheckSolvency(); err != nil {
		if !errors.Is(err, jackpot.ErrInsolvent) {
			s.writeFailure(w, r, err)
			return
		}
		resp.Solvent = false
		resp.Detail = err.Error()
		s.logger.Error("vault insolvent", "vault", resp.Vault, "pot", resp.Pot)
	}
	writeJSON(w, http.StatusOK, resp)
}
