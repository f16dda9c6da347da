package graph

// Queries against the marketplace indexer. Field selections stay minimal:
// exactly what the storefront renders and the builder consumes.

const marketplaceQuery = `
query GetMarketplace($subdomain: String!) {
  marketplace(subdomain: $subdomain) {
    subdomain
    name
    auctionHouse {
      address
      authority
      treasuryMint
      auctionHouseFeeAccount
      auctionHouseTreasury
      sellerFeeBasisPoints
      requiresSignOff
    }
  }
}`

const nftQuery = `
query GetNft($address: String!) {
  nft(address: $address) {
    address
    mintAddress
    name
    sellerFeeBasisPoints
    owner {
      address
      associatedTokenAccountAddress
    }
    creators {
      address
      share
      verified
    }
    listings {
      address
      tradeState
      tradeStateBump
      seller
      auctionHouse
      price
      createdAt
    }
    offers {
      address
      tradeState
      tradeStateBump
      buyer
      auctionHouse
      price
      createdAt
    }
    activities {
      address
      activityType
      price
      createdAt
      wallets
    }
  }
}`
