// Package crawler implements the scraping pipeline core: the fetch policy and
// backend chain, the domain table, and the orchestrator that walks the program
// listing, visits every program page, and checkpoints the discovered domains.
package crawler
