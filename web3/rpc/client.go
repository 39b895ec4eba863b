package rpc

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.vocdoni.io/dvote/log"
)

// Client is a view of a Web3Pool bound to one chainID. It implements the
// bind.ContractBackend interface, retrying each call over the available
// endpoints of the chain and disabling the ones that fail.
type Client struct {
	w3p     *Web3Pool
	chainID uint64
}

// ChainID returns the chain this client is bound to.
func (c *Client) ChainID() uint64 {
	return c.chainID
}

// do runs fn against the available endpoints of the chain until one
// succeeds. Failing endpoints are flagged as unavailable.
func (c *Client) do(fn func(*Web3Endpoint) error) error {
	attempts := c.w3p.NumberOfEndpoints(c.chainID, false)
	if attempts == 0 {
		return fmt.Errorf("no endpoint found for chainID %d", c.chainID)
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		endpoint, err := c.w3p.Endpoint(c.chainID)
		if err != nil {
			return err
		}
		if lastErr = fn(endpoint); lastErr == nil {
			return nil
		}
		log.Warnw("web3 endpoint call failed",
			"chainID", c.chainID, "uri", endpoint.URI, "err", lastErr)
		c.w3p.DisableEndpoint(c.chainID, endpoint.URI)
	}
	return lastErr
}

// CodeAt implements bind.ContractCaller.
func (c *Client) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	var code []byte
	err := c.do(func(e *Web3Endpoint) (err error) {
		code, err = e.client.CodeAt(ctx, contract, blockNumber)
		return err
	})
	return code, err
}

// CallContract implements bind.ContractCaller.
func (c *Client) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var res []byte
	err := c.do(func(e *Web3Endpoint) (err error) {
		res, err = e.client.CallContract(ctx, call, blockNumber)
		return err
	})
	return res, err
}

// HeaderByNumber implements bind.ContractTransactor.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	var header *types.Header
	err := c.do(func(e *Web3Endpoint) (err error) {
		header, err = e.client.HeaderByNumber(ctx, number)
		return err
	})
	return header, err
}

// PendingCodeAt implements bind.ContractTransactor.
func (c *Client) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	var code []byte
	err := c.do(func(e *Web3Endpoint) (err error) {
		code, err = e.client.PendingCodeAt(ctx, account)
		return err
	})
	return code, err
}

// PendingNonceAt implements bind.ContractTransactor.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	var nonce uint64
	err := c.do(func(e *Web3Endpoint) (err error) {
		nonce, err = e.client.PendingNonceAt(ctx, account)
		return err
	})
	return nonce, err
}

// SuggestGasPrice implements bind.ContractTransactor.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var price *big.Int
	err := c.do(func(e *Web3Endpoint) (err error) {
		price, err = e.client.SuggestGasPrice(ctx)
		return err
	})
	return price, err
}

// SuggestGasTipCap implements bind.ContractTransactor.
func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	var tip *big.Int
	err := c.do(func(e *Web3Endpoint) (err error) {
		tip, err = e.client.SuggestGasTipCap(ctx)
		return err
	})
	return tip, err
}

// EstimateGas implements bind.ContractTransactor.
func (c *Client) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	var gas uint64
	err := c.do(func(e *Web3Endpoint) (err error) {
		gas, err = e.client.EstimateGas(ctx, call)
		return err
	})
	return gas, err
}

// SendTransaction implements bind.ContractTransactor.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return c.do(func(e *Web3Endpoint) error {
		return e.client.SendTransaction(ctx, tx)
	})
}

// FilterLogs implements bind.ContractFilterer.
func (c *Client) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	err := c.do(func(e *Web3Endpoint) (err error) {
		logs, err = e.client.FilterLogs(ctx, query)
		return err
	})
	return logs, err
}

// SubscribeFilterLogs implements bind.ContractFilterer.
func (c *Client) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	var sub ethereum.Subscription
	err := c.do(func(e *Web3Endpoint) (err error) {
		sub, err = e.client.SubscribeFilterLogs(ctx, query, ch)
		return err
	})
	return sub, err
}

// TransactionReceipt returns the receipt of a mined transaction.
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := c.do(func(e *Web3Endpoint) (err error) {
		receipt, err = e.client.TransactionReceipt(ctx, txHash)
		return err
	})
	return receipt, err
}

// BalanceAt returns the wei balance of the given account.
func (c *Client) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	var balance *big.Int
	err := c.do(func(e *Web3Endpoint) (err error) {
		balance, err = e.client.BalanceAt(ctx, account, blockNumber)
		return err
	})
	return balance, err
}
