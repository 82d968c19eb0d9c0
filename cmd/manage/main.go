package main

import "github.com/pageza/foodgram/backend/cmd/manage/commands"

func main() {
	commands.Execute()
}
