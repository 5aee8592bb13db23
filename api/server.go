// Package api exposes the node's HTTP surface: heartbeat/transaction
// ingress, chain and account queries, and a live WebSocket event feed.
package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/AMCarbonaro/PULSE/consensus"
	"github.com/AMCarbonaro/PULSE/eventlog"
	"github.com/AMCarbonaro/PULSE/network"
)

// Server wires the consensus engine, network handle, and event log into
// an HTTP handler.
type Server struct {
	engine      *consensus.Engine
	net         *network.Handle
	events      *eventlog.Log
	broadcaster *eventlog.Broadcaster
	version     string

	writeLimiter *ipLimiter
	readLimiter  *ipLimiter

	router *httprouter.Router
}

// NewServer constructs the HTTP surface. version is reported by /info.
func NewServer(engine *consensus.Engine, net *network.Handle, events *eventlog.Log, broadcaster *eventlog.Broadcaster, version string) *Server {
	s := &Server{
		engine:       engine,
		net:          net,
		events:       events,
		broadcaster:  broadcaster,
		version:      version,
		writeLimiter: newIPLimiter(writeRatePerMin),
		readLimiter:  newIPLimiter(readRatePerMin),
		router:       httprouter.New(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	read := func(h httprouter.Handle) httprouter.Handle { return rateLimited(s.readLimiter, h) }
	write := func(h httprouter.Handle) httprouter.Handle { return rateLimited(s.writeLimiter, h) }

	s.router.GET("/health", read(s.handleHealth))
	s.router.GET("/stats", read(s.handleStats))
	s.router.GET("/info", read(s.handleInfo))
	s.router.GET("/chain", read(s.handleChain))
	s.router.GET("/events", read(s.handleEvents))
	s.router.GET("/peers", read(s.handlePeers))
	s.router.GET("/accounts", read(s.handleAccounts))
	s.router.GET("/balance/:pubkey", read(s.handleBalance))
	s.router.GET("/blocks", read(s.handleBlocks))
	s.router.GET("/block/latest", read(s.handleBlockLatest))
	s.router.GET("/block/:index", read(s.handleBlockByIndex))
	s.router.GET("/ws", s.handleWebSocket)

	s.router.POST("/pulse", write(s.handleSubmitHeartbeat))
	s.router.POST("/tx", write(s.handleSubmitTransaction))
}

// Handler returns the complete HTTP handler, CORS included.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(s.router)
}
