// Package dashboard serves live jitter buffer statistics over HTTP and
// WebSocket.
//
// A Hub keeps the latest snapshot and a rolling history per stream.
// Producers call Publish whenever they have fresh statistics; the hub's
// report loop pushes an aggregated Report to every connected WebSocket
// client at a fixed interval. Each client is identified by a random UUID
// that is sent in the initial hello message.
//
// Routes served by Hub.Handler:
//
//	GET /ws                 WebSocket stream of Message values
//	GET /api/streams        latest StreamReport per stream
//	GET /api/streams/{id}   rolling history of one stream
//
// Example:
//
//	hub := dashboard.NewHub(time.Second)
//	if err := hub.Start(); err != nil {
//	    return err
//	}
//	defer hub.Stop()
//	go http.ListenAndServe(":8080", hub.Handler())
//
//	hub.Publish(streamID, engine.GetStatistics())
//
// All Hub methods are safe for concurrent use.
package dashboard
