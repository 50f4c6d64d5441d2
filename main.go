// main is the entry point for the leadscore CLI.
package main

import (
	"github.com/huangsam/leadscore/cmd"
	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/internal/persist"
)

func main() {
	defer persist.CloseStores()
	if err := cmd.Execute(); err != nil {
		persist.CloseStores()
		contract.LogFatal("leadscore failed", err)
	}
}
