package dex

import (
	"errors"
	"math/big"
	"net"
	"net/http"
	"net/rpc"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// RPCServer serves the exchange over net/rpc on HTTP.
type RPCServer struct {
	ex *Exchange

	mu sync.Mutex
	l  net.Listener
}

func NewRPCServer(ex *Exchange) *RPCServer {
	return &RPCServer{ex: ex}
}

// Start listens on addr and serves requests in the background.
func (r *RPCServer) Start(addr string) error {
	server := rpc.NewServer()
	err := server.Register(&ExchangeService{ex: r.ex})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(rpc.DefaultRPCPath, server)

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.l = l
	r.mu.Unlock()

	go func() {
		err := http.Serve(l, mux)
		if err != nil && !errors.Is(err, net.ErrClosed) {
			log.Error("error serving RPC server", "err", err)
		}
	}()
	return nil
}

// Addr returns the listening address, nil before Start.
func (r *RPCServer) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.l == nil {
		return nil
	}
	return r.l.Addr()
}

func (r *RPCServer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.l == nil {
		return nil
	}
	return r.l.Close()
}

// ExchangeService is the RPC service of the exchange.
type ExchangeService struct {
	ex *Exchange
}

// SendTxn applies a signed transaction, see MakeMatchOrdersTxn and
// MakeCancelOrderTxn.
func (s *ExchangeService) SendTxn(t []byte, r *Receipt) error {
	receipt, err := s.ex.Apply(t)
	if err != nil {
		return err
	}

	*r = *receipt
	return nil
}

func (s *ExchangeService) OrderInfo(o Order, info *OrderInfo) error {
	r, err := s.ex.OrderInfo(&o)
	if err != nil {
		return err
	}

	*info = r
	return nil
}

type BalanceArgs struct {
	Asset   common.Address
	Account common.Address
}

func (s *ExchangeService) BalanceOf(args BalanceArgs, b *big.Int) error {
	b.Set(s.ex.BalanceOf(args.Asset, args.Account))
	return nil
}

func (s *ExchangeService) Nonce(addr common.Address, n *uint64) error {
	*n = s.ex.Nonce(addr)
	return nil
}

// OrderHash returns the fingerprint of the order, the message its
// owner has to sign.
func (s *ExchangeService) OrderHash(o Order, h *common.Hash) error {
	*h = s.ex.Hasher().Hash(&o)
	return nil
}
