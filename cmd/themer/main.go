// themer builds OPTCGSim theme packs from user artwork.
//
// It composites art into playmats, menu backgrounds, card backs, the DON!!
// card and card faces, previews single slots and exports the result as a
// zip laid out like the simulator's asset directory.
package main

import (
	"os"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
