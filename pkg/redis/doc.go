// Package redis connects to the redis instance backing the automation
// engine's dedup reservations.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil { ... }
//	defer client.Close()
package redis
