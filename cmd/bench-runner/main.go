package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nazeru/materials-marketplace-go/internal/apiclient"
	"github.com/nazeru/materials-marketplace-go/internal/bench"
	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
)

func main() {
	baseURL := flag.String("base-url", getenv("ORDER_BASE_URL", "http://localhost:8080"), "order-service base URL")
	secret := flag.String("secret", getenv("JWT_SECRET", ""), "JWT secret shared with order-service")
	material := flag.String("material", "", "existing material id; empty creates a fresh one")
	stock := flag.Int("stock", 100, "initial stock of the created material")
	total := flag.Int("total", 1000, "total number of orders")
	concurrency := flag.Int("concurrency", 10, "number of concurrent vendors")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	output := flag.String("output", "", "optional output path for JSON result")
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "secret is required (flag -secret or JWT_SECRET)")
		os.Exit(1)
	}

	client := apiclient.New(*baseURL, []byte(*secret), *timeout)
	result, err := bench.Run(context.Background(), bench.Config{
		Client:      client,
		MaterialID:  domain.MaterialID(*material),
		Stock:       *stock,
		Total:       *total,
		Concurrency: *concurrency,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", err)
		os.Exit(1)
	}

	if *output != "" {
		if err := writeJSON(*output, result); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write output: %v\n", err)
			os.Exit(1)
		}
	}
	if !result.Consistent {
		fmt.Fprintln(os.Stderr, "stock accounting mismatch: "+result.Summary())
		os.Exit(2)
	}
}

func writeJSON(path string, result bench.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
