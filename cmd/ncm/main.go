// Command ncm is a small operator CLI over the NCM client library: list
// devices, groups, and accounts, fetch single resources, and schedule
// reboots.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/netcloudops/ncm-client/pkg/client"
	"github.com/netcloudops/ncm-client/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	pretty     bool
	limit      int
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ncm",
		Short:         "Operator CLI for the NetCloud Manager API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&pretty, "pretty", false, "human-readable log output")
	root.PersistentFlags().IntVar(&limit, "limit", 0, "maximum records to fetch (0 = all)")

	root.AddCommand(
		listCommand("routers", client.EndpointRouters),
		listCommand("accounts", client.EndpointAccounts),
		listCommand("groups", client.EndpointGroups),
		listCommand("alerts", client.EndpointAlerts),
		inventoryCommand(),
		getCommand(),
		rebootCommand(),
	)

	return root
}

// newClient builds the library client from the config file and environment.
func newClient() (*client.Client, error) {
	fileCfg, err := loadFileConfig(configPath)
	if err != nil {
		return nil, err
	}

	level := logging.LogLevel(logLevel)
	if fileCfg.LogLevel != "" {
		level = logging.LogLevel(fileCfg.LogLevel)
	}
	logging.Setup(logging.Config{
		Level:  level,
		Pretty: pretty || fileCfg.Pretty,
		Output: os.Stderr,
	})

	cfg := client.DefaultConfig(fileCfg.credentials())
	if fileCfg.BaseURLV2 != "" {
		cfg.BaseURLV2 = fileCfg.BaseURLV2
	}
	if fileCfg.BaseURLV3 != "" {
		cfg.BaseURLV3 = fileCfg.BaseURLV3
	}
	if fileCfg.MinInterval > 0 {
		cfg.MinInterval = fileCfg.MinInterval
	}
	if fileCfg.RedisAddr != "" {
		cfg.Redis = redis.NewClient(&redis.Options{Addr: fileCfg.RedisAddr})
		cfg.CacheTTL = fileCfg.CacheTTL
	}

	return client.New(cfg)
}

// listCommand builds a "ncm <resource> [key=value ...]" listing command.
// Positional key=value pairs become equality filters.
func listCommand(name string, ep client.Endpoint) *cobra.Command {
	return &cobra.Command{
		Use:   name + " [filter=value ...]",
		Short: "List " + name,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			q, err := queryFromArgs(args)
			if err != nil {
				return err
			}

			records, err := c.List(cmd.Context(), ep, q.WithLimit(limit))
			if err != nil {
				// Partial results are still printed; the error tells
				// the operator the listing is incomplete.
				printRecords(cmd, records)
				return err
			}
			return printRecords(cmd, records)
		},
	}
}

func inventoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inventory [filter=value ...]",
		Short: "List the device inventory (v3 when a token is configured, v2 otherwise)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			q, err := queryFromArgs(args)
			if err != nil {
				return err
			}

			records, err := c.GetDeviceInventory(cmd.Context(), q.WithLimit(limit))
			if err != nil {
				printRecords(cmd, records)
				return err
			}
			return printRecords(cmd, records)
		},
	}
}

func getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <resource> <id>",
		Short: "Fetch a single resource by id (e.g. ncm get routers 12345)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ep, err := endpointByName(args[0])
			if err != nil {
				return err
			}

			c, err := newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			record, err := c.Get(cmd.Context(), ep, args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, record)
		},
	}
}

func rebootCommand() *cobra.Command {
	var group bool
	cmd := &cobra.Command{
		Use:   "reboot <id>",
		Short: "Schedule a reboot of a router (or a whole group with --group)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			var record client.Record
			if group {
				record, err = c.RebootGroup(cmd.Context(), args[0])
			} else {
				record, err = c.RebootDevice(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, record)
		},
	}
	cmd.Flags().BoolVar(&group, "group", false, "reboot every router in the group")
	return cmd
}

// queryFromArgs parses positional key=value pairs into filters. Values
// containing commas become membership filters.
func queryFromArgs(args []string) (*client.Query, error) {
	q := client.NewQuery()
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q, expected key=value", arg)
		}
		if values := strings.Split(value, ","); len(values) > 1 {
			q.In(key, values...)
		} else {
			q.Set(key, value)
		}
	}
	return q, nil
}

var cliEndpoints = map[string]client.Endpoint{
	"accounts":               client.EndpointAccounts,
	"groups":                 client.EndpointGroups,
	"routers":                client.EndpointRouters,
	"net_devices":            client.EndpointNetDevices,
	"alerts":                 client.EndpointAlerts,
	"configuration_managers": client.EndpointConfigurationManagers,
	"locations":              client.EndpointLocations,
	"products":               client.EndpointProducts,
	"firmwares":              client.EndpointFirmwares,
	"users":                  client.EndpointUsers,
	"subscriptions":          client.EndpointSubscriptions,
	"asset_endpoints":        client.EndpointAssetEndpoints,
}

func endpointByName(name string) (client.Endpoint, error) {
	ep, ok := cliEndpoints[name]
	if !ok {
		return client.Endpoint{}, fmt.Errorf("unknown resource %q", name)
	}
	return ep, nil
}

func printRecords(cmd *cobra.Command, records []client.Record) error {
	if records == nil {
		records = []client.Record{}
	}
	return printJSON(cmd, records)
}

func printJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
