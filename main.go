package main

import "github.com/OlliL/bosch-thermostat-mqtt/cmd"

func main() {
	cmd.Execute()
}
