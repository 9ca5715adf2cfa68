package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"agentpay/core/types"
	"agentpay/crypto"
)

func runGenerateKey(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("generate-key", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	out := fs.String("out", "wallet.key", "Destination key file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if _, err := os.Stat(*out); err == nil {
		fmt.Fprintf(stderr, "Error: %s already exists; refusing to overwrite\n", *out)
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := crypto.SaveKeyFile(*out, key); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Generated new key and saved to %s\n", *out)
	fmt.Fprintf(stdout, "Your address is: %s\n", key.PubKey().Address().String())
	return 0
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "Usage: address <key_file>")
		return 1
	}
	key, err := loadPrivateKey(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, key.PubKey().Address().String())
	return 0
}

func runBalance(client *rpcClient, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "Usage: balance <address>")
		return 1
	}
	raw, err := client.call("ledger_getBalance", args[0])
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	var result struct {
		Address string `json:"address"`
		Balance string `json:"balance"`
		Nonce   uint64 `json:"nonce"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "State for: %s\n", result.Address)
	fmt.Fprintf(stdout, "  Balance: %s\n", result.Balance)
	fmt.Fprintf(stdout, "  Nonce:   %d\n", result.Nonce)
	return 0
}

func runSend(client *rpcClient, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	value := fs.String("value", "0", "Attached value in base units")
	nonceFlag := fs.Int64("nonce", -1, "Explicit nonce; fetched from the node when negative")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	positional := fs.Args()
	if len(positional) != 3 {
		fmt.Fprintln(stderr, "Usage: send [--value <n>] [--nonce <n>] <type> <payload_json> <key_file>")
		return 1
	}
	key, err := loadPrivateKey(positional[2])
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	nonce := uint64(0)
	if *nonceFlag >= 0 {
		nonce = uint64(*nonceFlag)
	} else {
		raw, err := client.call("ledger_getNonce", key.PubKey().Address().String())
		if err != nil {
			fmt.Fprintf(stderr, "Error: fetching nonce: %v\n", err)
			return 1
		}
		if err := json.Unmarshal(raw, &nonce); err != nil {
			fmt.Fprintf(stderr, "Error: decoding nonce: %v\n", err)
			return 1
		}
	}
	tx, err := buildTransaction(key, positional[0], positional[1], *value, nonce)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	raw, err := client.call("ledger_sendTransaction", tx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	var receipt struct {
		TransactionHash string          `json:"transactionHash"`
		Success         bool            `json:"success"`
		Reason          string          `json:"reason"`
		Error           string          `json:"error"`
		Result          json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &receipt); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if !receipt.Success {
		fmt.Fprintf(stderr, "Transaction %s failed: %s (%s)\n", receipt.TransactionHash, receipt.Reason, receipt.Error)
		return 2
	}
	fmt.Fprintf(stdout, "Transaction %s applied\n", receipt.TransactionHash)
	if len(receipt.Result) > 0 {
		fmt.Fprintf(stdout, "%s\n", receipt.Result)
	}
	return 0
}

func runQuery(client *rpcClient, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, "Usage: query <method> [json params...]")
		return 1
	}
	method := args[0]
	if !strings.HasPrefix(method, "ledger_") {
		method = "ledger_" + method
	}
	if method == "ledger_sendTransaction" {
		fmt.Fprintln(stderr, "Error: use send to submit transactions")
		return 1
	}
	params := make([]interface{}, 0, len(args)-1)
	for _, arg := range args[1:] {
		var decoded interface{}
		if err := json.Unmarshal([]byte(arg), &decoded); err != nil {
			// Bare words are passed as strings.
			decoded = arg
		}
		params = append(params, decoded)
	}
	raw, err := client.call(method, params...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	var pretty interface{}
	if err := json.Unmarshal(raw, &pretty); err != nil {
		fmt.Fprintf(stdout, "%s\n", raw)
		return 0
	}
	encoded, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Fprintf(stdout, "%s\n", encoded)
	return 0
}

// buildTransaction signs a call to the named entry point. payload is the
// JSON operation body.
func buildTransaction(key *crypto.PrivateKey, typeName, payload, value string, nonce uint64) (*types.Transaction, error) {
	txType, err := types.ParseTxType(strings.TrimSpace(typeName))
	if err != nil {
		return nil, err
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("value must be a non-negative integer")
	}
	data := []byte(strings.TrimSpace(payload))
	if len(data) > 0 && !json.Valid(data) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	tx := &types.Transaction{Type: txType, Nonce: nonce, Value: amount, Data: data}
	if err := tx.Sign(key.PrivateKey); err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	return tx, nil
}

func loadPrivateKey(path string) (*crypto.PrivateKey, error) {
	key, err := crypto.LoadKeyFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("private key file %s not found. run agentpay-cli generate-key first", path)
		}
		return nil, fmt.Errorf("failed to load private key %s: %w", path, err)
	}
	return key, nil
}
