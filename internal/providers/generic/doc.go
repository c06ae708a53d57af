// Package generic implements providers.Scraper for plain HTML comic reading
// sites. Chapter links and page images are found from the DOM with goquery,
// with embedded SSR JSON and bare URLs in the page body as fallbacks.
package generic
