// Package server exposes the active printer prompt over HTTP.
//
// It is the headless alternative to the terminal presenter: a phone, a web
// page or a script polls the current prompt and answers it.
//
// # Endpoints
//
//	GET  /health                        {"status":"ok"}
//	GET  /prompt                        200 with the prompt, 204 when none is shown
//	POST /prompt/{id}/choose/{index}    202, runs the button's script
//	POST /prompt/{id}/dismiss           202, closes the prompt
//
// Each displayed prompt gets a fresh uuid. Requests naming any other id get
// 404, so a client acting on a prompt that has since closed cannot answer the
// next one. Button indexes follow display order: content buttons first, then
// footer buttons. Once a choice is made the prompt reports "pending": true
// and further choices get 409 until the printer acknowledges it and the
// prompt disappears. Dismiss still works while a choice is pending, since
// a script that fails is never acknowledged.
//
// # Example
//
//	p := server.NewPresenter()
//	session := prompt.NewSession(p, client)
//	srv := server.New(server.Config{Addr: "127.0.0.1:7130"}, p)
//	go srv.Run(ctx)
package server
