package persist

import (
	"fmt"

	"github.com/huangsam/leadscore/schema"
)

const statusTimeFormat = "2006-01-02 15:04:05"

// PrintConfigStatus prints config store status information.
func PrintConfigStatus(status schema.ConfigStoreStatus) {
	fmt.Printf("Config Backend: %s\n", status.Backend)
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	fmt.Printf("Stored Configurations: %d\n", status.TotalConfigs)
	fmt.Printf("Tenants: %d\n", status.TotalTenants)
	if status.TotalConfigs > 0 {
		fmt.Printf("Last Updated: %s\n", status.LastUpdated.Format(statusTimeFormat))
		fmt.Printf("Oldest Updated: %s\n", status.OldestUpdated.Format(statusTimeFormat))
	}
}

// PrintResultStatus prints result store status information.
func PrintResultStatus(status schema.ResultStoreStatus) {
	fmt.Printf("Results Backend: %s\n", status.Backend)
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	fmt.Printf("Total Runs: %d\n", status.TotalRuns)
	if status.TotalRuns > 0 {
		fmt.Printf("Last Run ID: %s\n", status.LastRunID)
		fmt.Printf("Last Run: %s\n", status.LastRunTime.Format(statusTimeFormat))
		fmt.Printf("Oldest Run: %s\n", status.OldestRunTime.Format(statusTimeFormat))
		fmt.Printf("Total Contacts Scored: %d\n", status.TotalContactsScored)
	}
	fmt.Println("Table Sizes:")
	for _, table := range []string{scoringRunsTable, contactScoresTable} {
		fmt.Printf("  %s: %d rows\n", table, status.TableSizes[table])
	}
}
