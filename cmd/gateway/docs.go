package main

//go:generate swag init -g cmd/gateway/main.go -o docs

// @title           IP Marketplace Gateway API
// @version         0.1.0
// @description     Listing, purchase and deletion workflows over the token ledger, payment ledger and marketplace registry.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
