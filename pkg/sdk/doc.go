// Package vecmatch embeds the vecmatch matching engine in-process.
//
// Posts are embedded once per distinct text, kept in a topic-scoped pool for a
// limited time, and matched against each other by cosine similarity inside a
// time window:
//
//	m, _ := vecmatch.New(ctx, vecmatch.WithEmbedder(myEmbedder))
//	defer m.Close()
//
//	res, _ := m.Submit(ctx, vecmatch.Post{OwnerID: 7, Topic: "running", Content: "evening 10k"})
//	for _, p := range res.Precise {
//	    fmt.Println(p.Post.OwnerID, p.Similarity)
//	}
//
// Pass WithRedis to share computed embeddings between processes.
package vecmatch
