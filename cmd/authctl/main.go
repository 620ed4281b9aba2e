package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/authctl"
)

func main() {
	os.Exit(authctl.Main(context.Background()))
}
