package main

import "github.com/vietddude/wikibot/internal/cli"

func main() {
	cli.Execute()
}
