// Command tourdesk-admin performs administrative tasks against the back office
// database, such as creating the first admin account.
//
//	tourdesk-admin [flags] create-admin <username> <email> [password]
//	tourdesk-admin [flags] migrate
package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/tourdesk/internal/flagx"
	"github.com/dmitrijs2005/tourdesk/internal/server"
	"github.com/dmitrijs2005/tourdesk/internal/server/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	cli, release, err := server.NewAdminCLI(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	code := cli.Run(ctx, flagx.Positional(os.Args[1:]))
	release()
	os.Exit(code)
}
