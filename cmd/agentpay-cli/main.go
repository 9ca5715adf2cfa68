package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8080/rpc"
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	endpoint := defaultRPCEndpoint()
	args, endpoint, err := applyGlobalFlags(args, endpoint)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(args) < 1 {
		printUsage(stdout)
		return 1
	}
	client := newRPCClient(endpoint)

	switch args[0] {
	case "generate-key":
		return runGenerateKey(args[1:], stdout, stderr)
	case "address":
		return runAddress(args[1:], stdout, stderr)
	case "balance":
		return runBalance(client, args[1:], stdout, stderr)
	case "send":
		return runSend(client, args[1:], stdout, stderr)
	case "query":
		return runQuery(client, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		printUsage(stderr)
		return 1
	}
}

func applyGlobalFlags(args []string, endpoint string) ([]string, string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return nil, "", fmt.Errorf("missing value for --rpc")
			}
			endpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--rpc=") {
			endpoint = strings.TrimPrefix(arg, "--rpc=")
			continue
		}
		out = append(out, arg)
	}
	return out, endpoint, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: agentpay-cli [--rpc <url>] <command> [arguments]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  generate-key [--out <file>]                     Create a new wallet key")
	fmt.Fprintln(w, "  address <key_file>                              Print the wallet address")
	fmt.Fprintln(w, "  balance <address>                               Show balance and nonce")
	fmt.Fprintln(w, "  send [--value <n>] <type> <payload> <key_file>  Sign and submit a transaction")
	fmt.Fprintln(w, "  query <method> [json params...]                 Call a read-only RPC method")
}
