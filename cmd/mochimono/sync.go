package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayane-t/mochimono/internal/syncmon"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Background replication status and control",
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current replication state",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if a.feed != nil {
			a.feed.Start(cmd.Context())
		}
		printStatus(a.monitor.GetStatus())
		return nil
	},
}

var syncWaitTimeout time.Duration

var syncNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Trigger a replication cycle and wait for the outcome",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if a.feed == nil {
			fmt.Println("sync disabled")
			return nil
		}
		a.feed.Start(cmd.Context())

		if err := a.monitor.TriggerSync(cmd.Context()); err != nil {
			return err
		}
		status, err := a.monitor.WaitForSync(cmd.Context(), syncWaitTimeout)
		if err != nil {
			return err
		}
		printStatus(status)
		return nil
	},
}

var syncWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream replication state transitions until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if a.feed == nil {
			fmt.Println("sync disabled")
			return nil
		}
		a.feed.Start(cmd.Context())

		// The callback only forwards into a channel; printing happens
		// here so the monitor's transition path never blocks.
		updates := make(chan syncmon.Status, 16)
		unsubscribe := a.monitor.Subscribe(func(st syncmon.Status) {
			select {
			case updates <- st:
			default:
			}
		})
		defer unsubscribe()

		for {
			select {
			case st := <-updates:
				printStatus(st)
			case <-cmd.Context().Done():
				return nil
			}
		}
	},
}

func printStatus(st syncmon.Status) {
	if st.Message != "" {
		fmt.Printf("%s: %s\n", st.State, st.Message)
		return
	}
	fmt.Println(st.State)
}

func init() {
	syncNowCmd.Flags().DurationVar(&syncWaitTimeout, "timeout", 30*time.Second, "how long to wait for completion")
	syncCmd.AddCommand(syncStatusCmd, syncNowCmd, syncWatchCmd)
	rootCmd.AddCommand(syncCmd)
}
