package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli"
)

func generate(c *cli.Context) error {
	dir := c.String("dir")
	err := os.MkdirAll(dir, 0700)
	if err != nil {
		return err
	}

	for i := 0; i < c.Int("N"); i++ {
		key, err := crypto.GenerateKey()
		if err != nil {
			return err
		}

		path := filepath.Join(dir, fmt.Sprintf("account-%d", i))
		err = crypto.SaveECDSA(path, key)
		if err != nil {
			return err
		}

		fmt.Printf("%s %s\n", crypto.PubkeyToAddress(key.PublicKey).Hex(), path)
	}
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "gen_credentials"
	app.Usage = "generate secp256k1 key files for the wallet"
	app.Flags = []cli.Flag{
		cli.IntFlag{Name: "N", Value: 10, Usage: "number of credentials to generate"},
		cli.StringFlag{Name: "dir", Value: "./credentials", Usage: "output directory name"},
	}
	app.Action = generate

	err := app.Run(os.Args)
	if err != nil {
		fmt.Printf("command failed with error: %v\n", err)
		os.Exit(1)
	}
}
