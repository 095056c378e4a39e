package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

func main() {
	server := "https://littleskin.cn/api/yggdrasil"
	if len(os.Args) > 1 {
		server = strings.TrimSuffix(os.Args[1], "/")
	}

	fmt.Printf("Querying: %s\n", server)

	resp, err := http.Get(server)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		panic(fmt.Sprintf("Status %d: %s", resp.StatusCode, string(body)))
	}

	var meta map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		panic(err)
	}

	if m, ok := meta["meta"].(map[string]interface{}); ok {
		fmt.Printf("Server name: %v\n", m["serverName"])
		fmt.Printf("Implementation: %v %v\n", m["implementationName"], m["implementationVersion"])
	}
	if domains, ok := meta["skinDomains"].([]interface{}); ok {
		fmt.Printf("Skin domains: %v\n", domains)
	}
	fmt.Printf("Auth endpoint: %s/authserver/authenticate\n", server)
}
