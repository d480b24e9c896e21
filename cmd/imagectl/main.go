package main

import (
	"os"

	"imaged/internal/imagectl"
)

func main() { os.Exit(imagectl.Main(os.Args[1:])) }
