package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/kgantsov/rtos/pkg/config"
	"github.com/kgantsov/rtos/pkg/storage"
	"github.com/kgantsov/rtos/pkg/trace"
	"github.com/spf13/cobra"
)

func NewCmdTrace() *cobra.Command {
	var limit int
	var lastID uint64
	var latest bool
	var purge bool
	var format string

	cmd := &cobra.Command{
		Use:     "trace",
		Short:   "Dump persisted scheduling trace events",
		Aliases: []string{"events"},
		Args:    cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			config, err := config.LoadConfig()
			if err != nil {
				fmt.Printf("Error loading config: %v\n", err)
				return
			}

			// no need to log anything in cmd
			config.Logging.Level = "warn"

			config.ConfigureLogger()

			if config.Storage.DataDir == "" {
				fmt.Println("No storage directory specified")
				return
			}

			db, err := badger.Open(config.BadgerOptions("trace"))
			if err != nil {
				fmt.Printf("Error opening database: %v\n", err)
				return
			}
			defer db.Close()

			store, err := storage.NewBadgerStore(db, config.Trace.NodeID)
			if err != nil {
				fmt.Printf("Error opening trace store: %v\n", err)
				return
			}

			if purge {
				if err := store.Purge(); err != nil {
					fmt.Printf("Error purging events: %v\n", err)
					return
				}
				fmt.Println("Purged all trace events")
				return
			}

			var events []*trace.Event
			switch {
			case len(args) > 0:
				for _, arg := range args {
					eventID, err := strconv.ParseUint(arg, 10, 64)
					if err != nil {
						fmt.Printf("Invalid event ID: %v\n", err)
						return
					}
					event, err := store.Get(eventID)
					if err != nil {
						fmt.Printf("Error getting event: %v\n", err)
						return
					}
					events = append(events, event)
				}
			case latest:
				events, err = store.Latest(limit)
			default:
				events, err = store.Events(limit, lastID)
			}
			if err != nil {
				fmt.Printf("Error getting events: %v\n", err)
				return
			}

			switch format {
			case "text":
				for _, event := range events {
					fmt.Printf(
						"%d tick=%d %-7s %s(#%d, prio %d) %s\n",
						event.ID,
						event.Tick,
						event.Kind,
						event.Task,
						event.TaskNumber,
						event.Priority,
						event.Detail,
					)
				}
			case "json":
				jsonData, err := json.MarshalIndent(events, "", "  ")
				if err != nil {
					fmt.Printf("Error marshaling events: %v\n", err)
					return
				}
				fmt.Println(string(jsonData))
			case "jsonl":
				for _, event := range events {
					jsonData, err := json.Marshal(event)
					if err != nil {
						fmt.Printf("Error marshaling event: %v\n", err)
						return
					}
					fmt.Println(string(jsonData))
				}
			default:
				fmt.Printf("Unknown format: %s\n", format)
				return
			}
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of events to retrieve")
	cmd.Flags().Uint64VarP(&lastID, "last_id", "l", 0, "Last event ID")
	cmd.Flags().BoolVar(&latest, "latest", false, "Show the most recent events first")
	cmd.Flags().BoolVar(&purge, "purge", false, "Delete all persisted events")
	cmd.Flags().StringVarP(&format, "output", "o", "text", "Output format (text, json, jsonl)")
	return cmd
}
