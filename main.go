package main

import (
	"fmt"
	"os"
)

func main() {
	// Check for command-line mode
	if len(os.Args) > 1 {
		cmd := os.Args[1]
		switch cmd {
		case "sample":
			if err := RunSampleCommand(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "gridsearch":
			if err := RunGridSearchCommand(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "tomography":
			if err := RunTomographyCommand(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "help", "-h", "--help":
			printUsage()
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
			printUsage()
			os.Exit(1)
		}
	}

	// Default: show help
	printUsage()
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  go run . [command] [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  sample      Sample the Gauss-coefficient posterior (HMC or Metropolis)")
	fmt.Println("  gridsearch  Evaluate the posterior on a grid over 1-3 coefficients")
	fmt.Println("  tomography  Straight-ray travel-time tomography on a checkerboard")
	fmt.Println("  help        Show this help message")
	fmt.Println()
	fmt.Println("Every command accepts -config run.yaml; flags given explicitly override it.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  go run . sample -lmax=3 -samples=5000 -adapt=1000")
	fmt.Println("  go run . sample -sampler=metropolis -samples=50000 -burnin=5000")
	fmt.Println("  go run . sample -config=run.yaml -log-level=debug")
	fmt.Println("  go run . gridsearch -axes=0,1 -nodes=61 -width=5")
	fmt.Println("  go run . tomography -nx=30 -ny=30 -damping=0.05")
	fmt.Println()
}
