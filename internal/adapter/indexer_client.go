// Package adapter contains clients for the external collaborators: the
// Ethereum RPC node supplying raw burn transfers and the price oracle
// supplying USD rates.
package adapter

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/burn-tracker/internal/circuitbreaker"
	"github.com/burn-tracker/internal/config"
	apperrors "github.com/burn-tracker/internal/errors"
	"github.com/burn-tracker/internal/models"
)

// transferTopic is the keccak hash of the ERC-20 Transfer event signature.
var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// IndexerClient reads UNI Transfer logs addressed to the burn address from
// an Ethereum node and converts them into raw burn transactions. Prices
// are not its concern; tuples leave here unpriced.
type IndexerClient struct {
	client        *ethclient.Client
	token         common.Address
	burnAddress   common.Address
	decimals      int
	confirmations int64
	breaker       *circuitbreaker.CircuitBreaker
}

// NewIndexerClient dials the configured RPC endpoint.
func NewIndexerClient(cfg *config.ChainConfig) (*IndexerClient, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("ETH_RPC_URL is not configured")
	}
	if !common.IsHexAddress(cfg.TokenContract) {
		return nil, fmt.Errorf("invalid token contract address: %s", cfg.TokenContract)
	}
	if !common.IsHexAddress(cfg.BurnAddress) {
		return nil, fmt.Errorf("invalid burn address: %s", cfg.BurnAddress)
	}

	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, apperrors.NewProviderError("ethereum rpc", err)
	}

	return &IndexerClient{
		client:        client,
		token:         common.HexToAddress(cfg.TokenContract),
		burnAddress:   common.HexToAddress(cfg.BurnAddress),
		decimals:      cfg.TokenDecimals,
		confirmations: cfg.ConfirmationBlocks,
		breaker:       circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig("ethereum-rpc")),
	}, nil
}

// Close releases the underlying RPC connection.
func (c *IndexerClient) Close() {
	c.client.Close()
}

// SafeHead returns the newest block the scanner should read up to: the
// chain head minus the configured confirmation depth. Reorg handling is
// out of scope, so staying behind the head is the only protection.
func (c *IndexerClient) SafeHead(ctx context.Context) (int64, error) {
	var head uint64
	err := c.breaker.Execute(ctx, func() error {
		var innerErr error
		head, innerErr = c.client.BlockNumber(ctx)
		return innerErr
	})
	if err != nil {
		return 0, apperrors.NewProviderError("ethereum rpc", err)
	}

	safe := int64(head) - c.confirmations
	if safe < 0 {
		safe = 0
	}
	return safe, nil
}

// FetchBurns returns all burn transfers in [fromBlock, toBlock] as raw
// burn transactions in block order.
func (c *IndexerClient) FetchBurns(ctx context.Context, fromBlock, toBlock int64) ([]*models.BurnTransaction, error) {
	query := ethereum.FilterQuery{
		FromBlock: big.NewInt(fromBlock),
		ToBlock:   big.NewInt(toBlock),
		Addresses: []common.Address{c.token},
		Topics: [][]common.Hash{
			{transferTopic},
			nil, // any sender
			{common.BytesToHash(c.burnAddress.Bytes())},
		},
	}

	var logs []ethtypesLog
	err := c.breaker.Execute(ctx, func() error {
		raw, innerErr := c.client.FilterLogs(ctx, query)
		if innerErr != nil {
			return innerErr
		}
		logs = make([]ethtypesLog, len(raw))
		for i := range raw {
			logs[i] = ethtypesLog{
				txHash:      raw[i].TxHash,
				blockNumber: raw[i].BlockNumber,
				blockHash:   raw[i].BlockHash,
				topics:      raw[i].Topics,
				data:        raw[i].Data,
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NewProviderError("ethereum rpc", err)
	}

	// Block timestamps come from headers; fetch each block's header once.
	headerTimes := make(map[common.Hash]time.Time)

	txs := make([]*models.BurnTransaction, 0, len(logs))
	for _, log := range logs {
		if len(log.topics) < 3 {
			continue
		}

		ts, ok := headerTimes[log.blockHash]
		if !ok {
			var headerTime uint64
			err := c.breaker.Execute(ctx, func() error {
				header, innerErr := c.client.HeaderByHash(ctx, log.blockHash)
				if innerErr != nil {
					return innerErr
				}
				headerTime = header.Time
				return nil
			})
			if err != nil {
				return nil, apperrors.NewProviderError("ethereum rpc", err)
			}
			ts = time.Unix(int64(headerTime), 0).UTC()
			headerTimes[log.blockHash] = ts
		}

		from := common.BytesToAddress(log.topics[1].Bytes())
		amount := scaleAmount(new(big.Int).SetBytes(log.data), c.decimals)

		txs = append(txs, &models.BurnTransaction{
			TxHash:      log.txHash.Hex(),
			BlockNumber: int64(log.blockNumber), // #nosec G115 - block numbers fit in int64
			Timestamp:   ts,
			UniAmount:   amount,
			FromAddress: from.Hex(),
		})
	}

	return txs, nil
}

// ethtypesLog carries the handful of log fields we use, decoupled from the
// go-ethereum type so the breaker closure stays small.
type ethtypesLog struct {
	txHash      common.Hash
	blockNumber uint64
	blockHash   common.Hash
	topics      []common.Hash
	data        []byte
}

// scaleAmount converts a raw token amount to whole tokens.
func scaleAmount(raw *big.Int, decimals int) float64 {
	f := new(big.Float).SetInt(raw)
	f.Quo(f, big.NewFloat(math.Pow10(decimals)))
	amount, _ := f.Float64()
	return amount
}
