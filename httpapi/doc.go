// Package httpapi serves the mini-app endpoints with echo.
//
// Routes:
//
//	POST /link-telegram   {initData, code}  -> {ok}
//	POST /telegram-auth   {initData}        -> {linked, supabase_user_id, access_token, refresh_token}
//	GET  /v1/me           Authorization: tma <initData>
//	GET  /_health
//
// Status codes: 200 success (including "not linked"), 400 rejected link code,
// 401 failed verification, 429 throttled, 500 configuration or unexpected
// failure. Failure bodies carry only the boolean flag, plus
// "missing configuration" when the server runs without an engine.
package httpapi
