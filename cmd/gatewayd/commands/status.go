package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/coachlink/gateway/pkg/config"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	statusAddr   string
	statusOutput string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show gateway status",
	Long: `Query the running coachlink-gateway process's health/status HTTP surface
and display per-network and per-feature status.

This command calls the gateway's own status endpoints (pkg/gatewayhttp); it
does not inspect process state directly, so it works the same whether the
gateway runs under a supervisor or in a foreground terminal.

Examples:
  # Check status of the locally running gateway
  gatewayd status

  # Check a gateway listening on a non-default address
  gatewayd status --addr http://localhost:9090

  # Output as JSON
  gatewayd status -o json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "gateway HTTP status address (default: from config, or http://localhost:8090)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "output format (table|json)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	addr := statusAddr
	if addr == "" {
		addr = defaultStatusAddr()
	}

	client := &http.Client{Timeout: 5 * time.Second}

	health, healthErr := fetchJSON(client, addr+"/health/ready")
	networks, netErr := fetchJSON(client, addr+"/api/v1/networks")
	features, featErr := fetchJSON(client, addr+"/api/v1/features")

	if statusOutput == "json" {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"health":   health,
			"networks": networks,
			"features": features,
		})
	}

	fmt.Println()
	fmt.Println("coachlink-gateway status")
	fmt.Println("=========================")
	fmt.Println()

	if healthErr != nil {
		fmt.Printf("  Reachable:  \033[31mno\033[0m (%s)\n\n", healthErr)
		return nil
	}
	printHealthLine(health)
	fmt.Println()

	if netErr == nil {
		printNetworkTable(networks)
	} else {
		fmt.Printf("  networks: unavailable (%s)\n\n", netErr)
	}

	if featErr == nil {
		printFeatureTable(features)
	} else {
		fmt.Printf("  features: unavailable (%s)\n\n", featErr)
	}

	return nil
}

func defaultStatusAddr() string {
	cfg, err := config.Load(GetConfigFile())
	if err != nil || cfg.HTTP.Addr == "" {
		return "http://localhost:8090"
	}
	bindAddr := cfg.HTTP.Addr
	if bindAddr[0] == ':' {
		return "http://localhost" + bindAddr
	}
	return "http://" + bindAddr
}

func fetchJSON(client *http.Client, url string) (map[string]any, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return out, nil
}

func printHealthLine(health map[string]any) {
	status, _ := health["status"].(string)
	if status == "healthy" {
		fmt.Printf("  Status:     \033[32m● %s\033[0m\n", status)
	} else {
		fmt.Printf("  Status:     \033[33m● %s\033[0m\n", status)
		if errMsg, ok := health["error"].(string); ok && errMsg != "" {
			fmt.Printf("  Error:      %s\n", errMsg)
		}
	}
}

func printNetworkTable(resp map[string]any) {
	rows, ok := resp["data"].([]any)
	if !ok {
		fmt.Println("  no networks registered")
		fmt.Println()
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Network", "Status", "Messages", "Errors", "Bus-Off", "Recoveries"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, r := range rows {
		n, ok := r.(map[string]any)
		if !ok {
			continue
		}
		table.Append([]string{
			stringField(n, "network_id"),
			stringField(n, "status"),
			numberField(n, "message_count"),
			numberField(n, "error_count"),
			numberField(n, "bus_off_count"),
			numberField(n, "fault_recoveries"),
		})
	}

	table.Render()
	fmt.Println()
}

func printFeatureTable(resp map[string]any) {
	data, ok := resp["data"].(map[string]any)
	if !ok {
		fmt.Println("  no feature manager data")
		fmt.Println()
		return
	}

	if overall, ok := data["overall"].(string); ok {
		fmt.Printf("  Overall feature health: %s\n", overall)
	}

	features, ok := data["features"].([]any)
	if !ok {
		fmt.Println()
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Feature", "State", "Health", "Disabled", "Error"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, f := range features {
		m, ok := f.(map[string]any)
		if !ok {
			continue
		}
		disabled := "false"
		if b, ok := m["disabled"].(bool); ok && b {
			disabled = "true"
		}
		table.Append([]string{
			stringField(m, "name"),
			stringField(m, "state"),
			stringField(m, "health"),
			disabled,
			stringField(m, "error"),
		})
	}

	table.Render()
	fmt.Println()
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func numberField(m map[string]any, key string) string {
	if v, ok := m[key].(float64); ok {
		return fmt.Sprintf("%.0f", v)
	}
	return "0"
}
