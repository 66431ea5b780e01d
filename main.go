package main

import "github.com/hyeonseo2/hf-translation-hub/cmd"

func main() {
	cmd.Execute()
}
