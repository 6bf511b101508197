package main

import moodlog "github.com/sadopc/moodlog/cmd/moodlog"

func main() {
	moodlog.Execute()
}
