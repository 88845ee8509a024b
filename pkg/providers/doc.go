// Package providers defines the contracts a parametric strong-motion web
// service client must satisfy, per the composition-over-inheritance
// redesign (UrlBuilder, ResponseParser, OptionValidator instead of a client
// base class), and builds the concrete RRSM (JSON) and ESM (XML) clients
// from them, plus RetryFetch for in-line retries.
package providers
