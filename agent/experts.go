package agent

import (
	"context"
	"fmt"

	"github.com/etnz/cardvault"
	"github.com/etnz/cardvault/docs"
	"github.com/etnz/cardvault/renderer"
	"google.golang.org/genai"
)

// Model is the Gemini model used by every expert.
var Model = "gemini-2.5-pro"

func instruction(text string) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{{Text: text}}}
}

// NewFacilitator creates the expert talking to the user.
func NewFacilitator(experts ...*Expert) *Expert {
	return &Expert{
		Name:      "Facilitator",
		ModelName: Model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{{FunctionDeclarations: NewDeclaration(experts)}},
			SystemInstruction: instruction(`
			As a facilitator you are in charge of the conversation and of solving the user's request.

			Learn about the experts' skills from the Tools and ask them questions.
			They keep the context of your previous questions.

			The user is a trading card collector. They come for the value of their collection,
			the price of cards, news about sets, or advice on what to sell.
			They assume you know their collection: ask the Curator before answering.

			Devise a plan of questions to the experts, then write a short markdown answer.`),
		},
		Library: NewLibrary(experts),
	}
}

// NewAppraiser creates an expert grounded on Google Search.
func NewAppraiser() *Expert {
	return &Expert{
		Name: "Appraiser",
		Description: `The Appraiser knows the trading card market: card prices, reprints,
		set releases, tournament results and collector news.
		Ask the Appraiser whenever you need recent or grounded information.`,
		ModelName: Model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
			SystemInstruction: instruction(`
			You are a trading card appraiser. Use Google Search to ground your assertions:
			current market prices, price trends, reprint announcements and news.
			Always state the source marketplace and the condition a price applies to.`),
		},
	}
}

// Collection loads the collection the assistant works on.
type Collection func(ctx context.Context) (*cardvault.Ledger, error)

// NewCurator creates the expert reading the user's collection. Values are
// reported in currency.
func NewCurator(load Collection, currency string) *Expert {
	lib := CuratorFunctions(load, currency)
	return &Expert{
		Name: "Curator",
		Description: `The Curator keeps the user's card collection. It knows which printings
		are held, in which condition, what they cost, what they are worth, their price history
		and the open marketplace listings.`,
		ModelName: Model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{{FunctionDeclarations: NewDeclaration(lib)}},
			SystemInstruction: instruction(`
			You are the curator of the user's trading card collection.
			Use the Tools to answer questions about the collection: holdings, printings,
			price history and listings. Pardon the approximate language of the other experts
			and figure out which printing they mean from the Printings tool.
			` + must(docs.GetTopic("keys"))),
		},
		Library: NewLibrary(lib),
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

var dateSchema = &genai.Schema{
	Type:        genai.TypeString,
	Description: "The day of the report. Today is the default.\n\n" + must(docs.GetTopic("dates")),
}

// CuratorFunctions are the tools of the curator.
func CuratorFunctions(load Collection, currency string) []Function {
	snapshot := func(ctx context.Context, args map[string]any) (*cardvault.Snapshot, error) {
		on, err := dateArg(args, "date")
		if err != nil {
			return nil, err
		}
		l, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not load collection: %w", err)
		}
		return l.NewSnapshot(on), nil
	}

	return []Function{
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name:        "Holdings",
				Description: "Holdings lists the copies held on a day, with their condition, unit cost, price and value, and the collection totals.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"date":    dateSchema,
						"by_name": {Type: genai.TypeBoolean, Description: "Group the printings of the same card."},
					},
				},
				Response: &genai.Schema{Type: genai.TypeString, Description: "A markdown report."},
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				s, err := snapshot(ctx, args)
				if err != nil {
					return "", err
				}
				h := renderer.NewHolding(s, currency)
				h.ByName, _ = args["by_name"].(bool)
				return renderer.RenderHolding(h), nil
			},
		},
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name:        "Printings",
				Description: "Printings lists every printing declared in the collection with its key, name, set and rarity, and how many copies are held.",
				Parameters: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: map[string]*genai.Schema{"date": dateSchema},
				},
				Response: &genai.Schema{Type: genai.TypeString, Description: "A markdown table."},
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				s, err := snapshot(ctx, args)
				if err != nil {
					return "", err
				}
				return renderer.PrintingsMarkdown(s), nil
			},
		},
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name:        "History",
				Description: "History shows the recorded prices of a printing, its trend, minimum and maximum.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"key":  {Type: genai.TypeString, Description: "The printing key, see the Printings tool."},
						"from": {Type: genai.TypeString, Description: "First day of the history. The whole history by default."},
					},
					Required: []string{"key"},
				},
				Response: &genai.Schema{Type: genai.TypeString, Description: "A markdown report."},
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				s, _ := args["key"].(string)
				key, err := cardvault.ParseKey(s)
				if err != nil {
					return "", err
				}
				var from cardvault.Date
				if _, ok := args["from"]; ok {
					if from, err = dateArg(args, "from"); err != nil {
						return "", err
					}
				}
				l, err := load(ctx)
				if err != nil {
					return "", fmt.Errorf("could not load collection: %w", err)
				}
				if _, ok := l.Printing(key); !ok {
					return "", fmt.Errorf("printing %q is not in the collection", key)
				}
				return renderer.RenderHistory(renderer.NewHistory(l, key, "", from, cardvault.Date{})), nil
			},
		},
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name:        "Listings",
				Description: "Listings shows the copies offered for sale on marketplaces.",
				Parameters: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: map[string]*genai.Schema{"date": dateSchema},
				},
				Response: &genai.Schema{Type: genai.TypeString, Description: "A markdown table."},
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				s, err := snapshot(ctx, args)
				if err != nil {
					return "", err
				}
				return renderer.RenderListings(renderer.NewListings(s, false)), nil
			},
		},
	}
}

// dateArg reads a date argument, today if absent.
func dateArg(args map[string]any, name string) (cardvault.Date, error) {
	v, ok := args[name]
	if !ok {
		return cardvault.Today(), nil
	}
	s, ok := v.(string)
	if !ok {
		return cardvault.Date{}, fmt.Errorf("argument %q is not a string but %T", name, v)
	}
	d, err := cardvault.ParseDate(s)
	if err != nil {
		return d, fmt.Errorf("argument %q must be a valid date, got %q. The date format is:\n\n%s", name, s, must(docs.GetTopic("dates")))
	}
	return d, nil
}
