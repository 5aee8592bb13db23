package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/AMCarbonaro/PULSE/eventlog"
	"github.com/AMCarbonaro/PULSE/types"
)

const (
	minPubkeyHexLen = 32
	maxPubkeyHexLen = 256

	defaultBlocksLimit = 50
	maxBlocksLimit     = 200
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeOK(w, "Pulse node is alive")
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeOK(w, s.engine.Stats())
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeOK(w, struct {
		Version     string `json:"version"`
		ChainHeight uint64 `json:"chain_height"`
		PeerID      string `json:"peer_id"`
		PeerCount   int32  `json:"peer_count"`
	}{
		Version:     s.version,
		ChainHeight: s.engine.ChainHeight(),
		PeerID:      s.net.PeerID(),
		PeerCount:   s.net.PeerCount(),
	})
}

func (s *Server) handleChain(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	latest := s.engine.LatestBlock()
	writeOK(w, struct {
		Height             uint64 `json:"height"`
		LatestHash         string `json:"latest_hash"`
		HeartbeatPoolSize  int    `json:"heartbeat_pool_size"`
	}{
		Height:            s.engine.ChainHeight(),
		LatestHash:        latest.BlockHash,
		HeartbeatPoolSize: s.engine.HeartbeatPoolSize(),
	})
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeOK(w, s.net.ConnectedPeers())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	if sinceStr := q.Get("since"); sinceStr != "" {
		since, err := strconv.ParseUint(sinceStr, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since parameter")
			return
		}
		writeOK(w, s.events.Since(since))
		return
	}
	limit := 50
	if limitStr := q.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = parsed
	}
	writeOK(w, s.events.Latest(limit))
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	pubkey := ps.ByName("pubkey")
	if len(pubkey) < minPubkeyHexLen || len(pubkey) > maxPubkeyHexLen {
		writeError(w, http.StatusBadRequest, "pubkey must be hex, length in [32, 256]")
		return
	}
	writeOK(w, struct {
		Pubkey  string  `json:"pubkey"`
		Balance float64 `json:"balance"`
	}{Pubkey: pubkey, Balance: s.engine.Balance(pubkey)})
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	accounts := s.engine.Accounts()
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Pubkey < accounts[j].Pubkey })
	writeOK(w, accounts)
}

// handleBlocks serves a page of the chain for browsing and for HTTP
// bootstrap sync. With no offset it returns the most recent `limit`
// blocks (newest-relevant default for casual browsing); with an explicit
// offset it returns `limit` blocks starting at that index, ascending,
// which is what a syncing peer walking the chain from a known height uses.
func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	limit := defaultBlocksLimit
	if limitStr := q.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = parsed
	}
	if limit > maxBlocksLimit {
		limit = maxBlocksLimit
	}

	all := s.engine.Blocks()
	var page []types.PulseBlock
	if offsetStr := q.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset parameter")
			return
		}
		if offset < len(all) {
			page = all[offset:]
		}
		if limit < len(page) {
			page = page[:limit]
		}
	} else {
		page = all
		if limit < len(page) {
			page = page[len(page)-limit:]
		}
	}
	writeOK(w, struct {
		Blocks []types.PulseBlock `json:"blocks"`
	}{Blocks: page})
}

func (s *Server) handleBlockLatest(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeOK(w, s.engine.LatestBlock())
}

func (s *Server) handleBlockByIndex(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	index, err := strconv.ParseUint(ps.ByName("index"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid block index")
		return
	}
	block, ok := s.engine.BlockByIndex(index)
	if !ok {
		writeError(w, http.StatusNotFound, "block not found")
		return
	}
	writeOK(w, block)
}

func (s *Server) handleSubmitHeartbeat(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var hb types.Heartbeat
	if err := json.NewDecoder(r.Body).Decode(&hb); err != nil {
		writeError(w, http.StatusBadRequest, "invalid heartbeat payload")
		return
	}
	if hb.HeartRate < 1 || hb.HeartRate > 300 {
		writeError(w, http.StatusBadRequest, "heart_rate must be in [1, 300]")
		return
	}
	if hb.Temperature < 25 || hb.Temperature > 45 {
		writeError(w, http.StatusBadRequest, "temperature must be in [25, 45]")
		return
	}
	if len(hb.DevicePubkey) < minPubkeyHexLen || len(hb.DevicePubkey) > maxPubkeyHexLen {
		writeError(w, http.StatusBadRequest, "device_pubkey must be hex, length in [32, 256]")
		return
	}
	if hb.Signature == "" {
		writeError(w, http.StatusBadRequest, "signature required")
		return
	}

	if err := s.engine.ReceiveHeartbeat(hb); err != nil {
		writeError(w, statusForConsensusError(err), err.Error())
		return
	}

	s.net.BroadcastHeartbeat(hb)
	s.events.Push(eventlog.HeartbeatReceived(hb.Timestamp, hb.DevicePubkey, hb.HeartRate, hb.Weight()))
	writeOK(w, "heartbeat accepted")
}

func (s *Server) handleSubmitTransaction(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var tx types.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction payload")
		return
	}
	if tx.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if tx.SenderPubkey == tx.RecipientPubkey {
		writeError(w, http.StatusBadRequest, "sender and recipient must differ")
		return
	}
	if tx.Signature == "" {
		writeError(w, http.StatusBadRequest, "signature required")
		return
	}

	if err := s.engine.ReceiveTransaction(tx); err != nil {
		writeError(w, statusForConsensusError(err), err.Error())
		return
	}

	s.events.Push(eventlog.TransactionReceived(tx.Timestamp, tx.TxID, tx.SenderPubkey, tx.RecipientPubkey, tx.Amount))
	writeOK(w, "transaction queued")
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.broadcaster.ServeWS(w, r)
}
