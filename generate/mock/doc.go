// Package mock provides a test double for generate.Backend.
//
//	backend := mock.NewMockBackend(`{"concepts": ["osmosis"]}`)
//	client, _ := generate.NewClient(backend)
//	concepts, _ := client.Concepts(ctx, "Water moves by osmosis.")
//	count := backend.CallCount()
package mock
