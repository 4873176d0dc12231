package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/mark-c-hall/whatmovies/internal/config"
	"github.com/mark-c-hall/whatmovies/internal/graph"
	"github.com/mark-c-hall/whatmovies/internal/tmdb"
)

var visitorFlag = flag.String("visitor", "", "visitor id (the wm_visitor cookie value)")
var addFlag = flag.String("add", "", "tmdb movie id to add to the visitor's favorites")
var removeFlag = flag.String("remove", "", "tmdb movie id to remove from the visitor's favorites")
var listFlag = flag.Bool("list", false, "list the visitor's favorites, newest first")
var titlesFlag = flag.Bool("titles", false, "resolve titles through the TMDB API when listing (needs TMDB_API_TOKEN)")
var topFlag = flag.Int("top", 0, "print the k most favorited movies across all visitors")

func main() {
	flag.Parse()

	dbCfg, err := config.LoadDB()
	if err != nil {
		log.Fatalln("Error loading config:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := graph.NewDriver(ctx, *dbCfg)
	if err != nil {
		log.Fatalln("Error connecting to neo4j:", err)
	}
	defer db.Close(context.Background())

	if err := db.SetupSchema(ctx); err != nil {
		log.Fatalln("Error setting up schema:", err)
	}

	if *topFlag > 0 {
		printTop(ctx, db, *topFlag)
		return
	}

	if *visitorFlag == "" {
		log.Fatalln("-visitor is required unless -top is set")
	}

	if *addFlag != "" {
		if err := tmdb.ValidateID(*addFlag); err != nil {
			log.Fatalf("Invalid movie id %q: %v", *addFlag, err)
		}
		if err := db.Add(ctx, *visitorFlag, *addFlag); err != nil {
			log.Fatalln("Error adding favorite:", err)
		}
		log.Printf("Added %s for visitor %s", *addFlag, *visitorFlag)
	}

	if *removeFlag != "" {
		if err := db.Remove(ctx, *visitorFlag, *removeFlag); err != nil {
			log.Fatalln("Error removing favorite:", err)
		}
		log.Printf("Removed %s for visitor %s", *removeFlag, *visitorFlag)
	}

	if *listFlag {
		printList(ctx, db, *visitorFlag)
	}
}

func printList(ctx context.Context, db *graph.Driver, visitor string) {
	favs, err := db.List(ctx, visitor)
	if err != nil {
		log.Fatalln("Error listing favorites:", err)
	}

	var client *tmdb.Client
	if *titlesFlag {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalln("Error loading config:", err)
		}
		client = tmdb.NewClient(*cfg)
	}

	for _, fav := range favs {
		title := ""
		if client != nil {
			movie, err := client.GetMovieByID(ctx, fav.MovieID)
			if err != nil {
				log.Printf("Error fetching movie %s, skipping title: %v", fav.MovieID, err)
			} else {
				title = movie.Title
			}
		}
		fmt.Printf("%s\t%s\t%s\n", fav.CreatedAt.Format("2006-01-02 15:04:05"), fav.MovieID, title)
	}
}

func printTop(ctx context.Context, db *graph.Driver, k int) {
	counts, err := db.CountFavorites(ctx, k)
	if err != nil {
		log.Fatalln("Error counting favorites:", err)
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})

	for _, id := range ids {
		fmt.Printf("%s\t%d\n", id, counts[id])
	}
}
