// Package dashboard serves the browser dashboard: an HTML page holding the
// movie form, the movie list and the three chart canvases, a JSON API for
// the mutation operations, and a websocket that pushes every list render and
// chart frame to connected browsers.
//
// The page itself never computes chart data. Every redraw originates from an
// engine cycle on the server and reaches the browser as a Message.
package dashboard
