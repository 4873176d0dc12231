package view

const (
	Brand     = "WhatMovies +"
	BrandHref = "/"

	navBaseClass     = "text-sm font-medium hover:text-red-600 transition-colors"
	navActiveClass   = "text-red-600 underline"
	navInactiveClass = "text-white"
)

type NavLink struct {
	Href   string
	Label  string
	Active bool
	Class  string
}

var navLinks = []struct{ href, label string }{
	{"/popular", "Popular"},
	{"/top-rated", "Top Rated"},
	{"/now-playing", "Now Playing"},
	{"/my-favorites", "My Favorites"},
}

// NavLinks returns the header links with the one whose href equals path
// marked active.
func NavLinks(path string) []NavLink {
	links := make([]NavLink, 0, len(navLinks))
	for _, l := range navLinks {
		link := NavLink{Href: l.href, Label: l.label, Active: l.href == path}
		if link.Active {
			link.Class = navBaseClass + " " + navActiveClass
		} else {
			link.Class = navBaseClass + " " + navInactiveClass
		}
		links = append(links, link)
	}
	return links
}
