package main

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"math/big"
	"net/rpc"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/luiz-henrique-gyn/backend/pkg/dex"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli"
)

var rpcAddr string
var credentialPath string

// signedOrder is the file format of an order handed from its owner to
// a relayer.
type signedOrder struct {
	Order dex.Order     `json:"order"`
	Sig   hexutil.Bytes `json:"sig"`
}

func loadKey() (*ecdsa.PrivateKey, error) {
	if credentialPath == "" {
		return nil, fmt.Errorf("credential file not set, use -c")
	}
	return crypto.LoadECDSA(credentialPath)
}

func parseAddr(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address: %s", s)
	}
	return common.HexToAddress(s), nil
}

// accountArg returns the address given as the idx-th argument, or the
// address of the credential when the argument is missing.
func accountArg(c *cli.Context, idx int) (common.Address, error) {
	if s := c.Args().Get(idx); s != "" {
		return parseAddr(s)
	}

	key, err := loadKey()
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

// toUnits converts a decimal amount to the smallest unit of an asset
// with the given decimals.
func toUnits(amount string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}

	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount: %s", amount)
	}

	units := d.Shift(decimals)
	if !units.Equal(units.Truncate(0)) {
		return nil, fmt.Errorf("amount %s has more than %d decimals", amount, decimals)
	}
	return units.BigInt(), nil
}

func fromUnits(units *big.Int, decimals int32) string {
	if units == nil {
		units = new(big.Int)
	}
	return decimal.NewFromBigInt(units, -decimals).String()
}

func readOrder(path string) (*signedOrder, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var o signedOrder
	err = json.Unmarshal(b, &o)
	if err != nil {
		return nil, fmt.Errorf("error decoding order file %s: %w", path, err)
	}
	return &o, nil
}

func nonce(client *rpc.Client, addr common.Address) (uint64, error) {
	var n uint64
	err := client.Call("ExchangeService.Nonce", addr, &n)
	return n, err
}

func sendTxn(client *rpc.Client, txn []byte) (*dex.Receipt, error) {
	var r dex.Receipt
	err := client.Call("ExchangeService.SendTxn", txn, &r)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func printAddress(c *cli.Context) error {
	key, err := loadKey()
	if err != nil {
		return err
	}

	fmt.Println(crypto.PubkeyToAddress(key.PublicKey).Hex())
	return nil
}

func printBalance(c *cli.Context) error {
	asset, err := parseAddr(c.Args().First())
	if err != nil {
		return err
	}

	account, err := accountArg(c, 1)
	if err != nil {
		return err
	}

	client, err := rpc.DialHTTP("tcp", rpcAddr)
	if err != nil {
		return err
	}
	defer client.Close()

	balance := new(big.Int)
	err = client.Call("ExchangeService.BalanceOf", dex.BalanceArgs{Asset: asset, Account: account}, balance)
	if err != nil {
		return err
	}

	fmt.Println(fromUnits(balance, int32(c.Int("decimals"))))
	return nil
}

func printNonce(c *cli.Context) error {
	account, err := accountArg(c, 0)
	if err != nil {
		return err
	}

	client, err := rpc.DialHTTP("tcp", rpcAddr)
	if err != nil {
		return err
	}
	defer client.Close()

	n, err := nonce(client, account)
	if err != nil {
		return err
	}

	fmt.Println(n)
	return nil
}

func optionalAddr(s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, nil
	}
	return parseAddr(s)
}

func createOrder(c *cli.Context) error {
	args := c.Args()
	if len(args) < 4 {
		return fmt.Errorf("order needs 4 arguments (received: %d), please check usage using ./wallet -h", len(args))
	}

	key, err := loadKey()
	if err != nil {
		return err
	}

	sellAsset, err := parseAddr(args[0])
	if err != nil {
		return err
	}

	sell, err := toUnits(args[1], int32(c.Int("sell-decimals")))
	if err != nil {
		return fmt.Errorf("parse sell amount error: %v", err)
	}

	buyAsset, err := parseAddr(args[2])
	if err != nil {
		return err
	}

	buy, err := toUnits(args[3], int32(c.Int("buy-decimals")))
	if err != nil {
		return fmt.Errorf("parse buy amount error: %v", err)
	}

	feeRecipient, err := optionalAddr(c.String("fee-recipient"))
	if err != nil {
		return err
	}

	relayer, err := optionalAddr(c.String("relayer"))
	if err != nil {
		return err
	}

	fees := make([]*big.Int, 3)
	for i, name := range []string{"maker-fee", "taker-fee", "gas-fee"} {
		fees[i], err = toUnits(c.String(name), 0)
		if err != nil {
			return fmt.Errorf("parse %s error: %v", name, err)
		}
	}

	salt, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 256))
	if err != nil {
		return err
	}

	o := dex.Order{
		Owner:          crypto.PubkeyToAddress(key.PublicKey),
		SellAsset:      sellAsset,
		BuyAsset:       buyAsset,
		FeeRecipient:   feeRecipient,
		Relayer:        relayer,
		SellAmount:     sell,
		BuyAmount:      buy,
		MakerVolumeFee: fees[0],
		TakerVolumeFee: fees[1],
		GasFee:         fees[2],
		Expiration:     big.NewInt(time.Now().Add(c.Duration("expire")).Unix()),
		Salt:           salt,
	}

	client, err := rpc.DialHTTP("tcp", rpcAddr)
	if err != nil {
		return err
	}
	defer client.Close()

	// the node knows the exchange domain the hash is bound to
	var h common.Hash
	err = client.Call("ExchangeService.OrderHash", o, &h)
	if err != nil {
		return err
	}

	sig, err := dex.SignHash(key, h, dex.SigTypeEIP712)
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(signedOrder{Order: o, Sig: hexutil.Bytes(sig)}, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(b))
	return nil
}

func printOrderInfo(c *cli.Context) error {
	o, err := readOrder(c.Args().First())
	if err != nil {
		return err
	}

	client, err := rpc.DialHTTP("tcp", rpcAddr)
	if err != nil {
		return err
	}
	defer client.Close()

	var info dex.OrderInfo
	err = client.Call("ExchangeService.OrderInfo", o.Order, &info)
	if err != nil {
		return err
	}

	fmt.Printf("Hash:   %s\n", info.Hash.Hex())
	fmt.Printf("Status: %s\n", info.Status)
	fmt.Printf("Filled: %s / %s\n", fromUnits(info.Filled, 0), fromUnits(o.Order.BuyAmount, 0))
	return nil
}

func matchOrders(c *cli.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return fmt.Errorf("match needs 2 arguments (received: %d), please check usage using ./wallet -h", len(args))
	}

	key, err := loadKey()
	if err != nil {
		return err
	}

	a, err := readOrder(args[0])
	if err != nil {
		return err
	}

	b, err := readOrder(args[1])
	if err != nil {
		return err
	}

	client, err := rpc.DialHTTP("tcp", rpcAddr)
	if err != nil {
		return err
	}
	defer client.Close()

	n, err := nonce(client, crypto.PubkeyToAddress(key.PublicKey))
	if err != nil {
		return err
	}

	txn := dex.MakeMatchOrdersTxn(key, dex.MatchOrdersTxn{
		OrderA: a.Order,
		OrderB: b.Order,
		SigA:   dex.Sig(a.Sig),
		SigB:   dex.Sig(b.Sig),
	}, n)

	r, err := sendTxn(client, txn)
	if err != nil {
		return err
	}

	fmt.Println(r.Txn.Hex())
	if r.Fill != nil {
		fmt.Printf("sellFilledA: %s, sellFilledB: %s, feeA: %s, feeB: %s\n",
			fromUnits(r.Fill.SellFilledA, 0), fromUnits(r.Fill.SellFilledB, 0),
			fromUnits(r.Fill.FeeA, 0), fromUnits(r.Fill.FeeB, 0))
	}
	return nil
}

func cancelOrder(c *cli.Context) error {
	key, err := loadKey()
	if err != nil {
		return err
	}

	o, err := readOrder(c.Args().First())
	if err != nil {
		return err
	}

	client, err := rpc.DialHTTP("tcp", rpcAddr)
	if err != nil {
		return err
	}
	defer client.Close()

	n, err := nonce(client, crypto.PubkeyToAddress(key.PublicKey))
	if err != nil {
		return err
	}

	r, err := sendTxn(client, dex.MakeCancelOrderTxn(key, o.Order, n))
	if err != nil {
		return err
	}

	fmt.Println(r.Txn.Hex())
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "DEX wallet"
	app.Usage = ""

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:        "credential, c",
			Usage:       "path to the secp256k1 key file",
			Destination: &credentialPath,
		},
		cli.StringFlag{
			Name:        "addr",
			Value:       ":12001",
			Usage:       "node's RPC endpoint",
			Destination: &rpcAddr,
		},
	}

	app.Commands = []cli.Command{
		{
			Name:   "address",
			Usage:  "Print the address of the credential: ./wallet -c KEY_FILE address",
			Action: printAddress,
		},
		{
			Name:   "balance",
			Usage:  "Print the balance of an account: ./wallet balance ASSET [ACCOUNT]",
			Action: printBalance,
			Flags: []cli.Flag{
				cli.IntFlag{Name: "decimals", Usage: "decimals of the asset"},
			},
		},
		{
			Name:   "nonce",
			Usage:  "Print the next transaction nonce of an account: ./wallet nonce [ACCOUNT]",
			Action: printNonce,
		},
		{
			Name:   "order",
			Usage:  "Sign an order and print it as JSON: ./wallet -c KEY_FILE order SELL_ASSET SELL_AMOUNT BUY_ASSET BUY_AMOUNT",
			Action: createOrder,
			Flags: []cli.Flag{
				cli.IntFlag{Name: "sell-decimals", Usage: "decimals of the sell asset"},
				cli.IntFlag{Name: "buy-decimals", Usage: "decimals of the buy asset"},
				cli.StringFlag{Name: "maker-fee", Value: "0", Usage: "maker volume fee, in the smallest unit of the sell asset"},
				cli.StringFlag{Name: "taker-fee", Value: "0", Usage: "taker volume fee, in the smallest unit of the sell asset"},
				cli.StringFlag{Name: "gas-fee", Value: "0", Usage: "flat fee charged when the order is matched as the taker"},
				cli.StringFlag{Name: "fee-recipient", Usage: "account receiving the fees"},
				cli.StringFlag{Name: "relayer", Usage: "the only account allowed to submit the order, empty means anyone"},
				cli.DurationFlag{Name: "expire", Value: 24 * time.Hour, Usage: "time until the order expires"},
			},
		},
		{
			Name:   "info",
			Usage:  "Print the status of an order: ./wallet info ORDER_FILE",
			Action: printOrderInfo,
		},
		{
			Name:   "match",
			Usage:  "Match two orders, the first one sets the price: ./wallet -c KEY_FILE match ORDER_A_FILE ORDER_B_FILE",
			Action: matchOrders,
		},
		{
			Name:   "cancel",
			Usage:  "Cancel an order of the credential: ./wallet -c KEY_FILE cancel ORDER_FILE",
			Action: cancelOrder,
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Printf("command failed with error: %v\n", err)
		os.Exit(1)
	}
}
